package main

import (
	"fmt"
	"strconv"

	"github.com/shmkit/shmkit/prefixtree"
	"github.com/shmkit/shmkit/shm"
	"github.com/shmkit/shmkit/shm/alloc"
)

func backing() shm.Backing {
	if useSHM {
		return shm.BackingSHM
	}
	return shm.BackingFile
}

// openTree attaches to the pool named by the global flags and returns
// the tree plus a cleanup func.
func openTree() (*prefixtree.Tree, func(), error) {
	p, err := shm.Open(poolPath, shm.WithBacking(backing()))
	if err != nil {
		return nil, nil, err
	}
	a, err := alloc.NewSimple(p)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	tree, err := prefixtree.New(a, 0)
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return tree, func() { p.Close() }, nil
}

// parseValue builds a Value from a CLI literal and type name.
func parseValue(typ, literal string) (prefixtree.Value, error) {
	switch typ {
	case "string":
		return prefixtree.StringValue([]byte(literal)), nil
	case "int":
		i, err := strconv.ParseInt(literal, 0, 64)
		if err != nil {
			return prefixtree.Value{}, fmt.Errorf("bad int %q: %w", literal, err)
		}
		return prefixtree.IntValue(i), nil
	case "double":
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return prefixtree.Value{}, fmt.Errorf("bad double %q: %w", literal, err)
		}
		return prefixtree.DoubleValue(f), nil
	case "bool":
		b, err := strconv.ParseBool(literal)
		if err != nil {
			return prefixtree.Value{}, fmt.Errorf("bad bool %q: %w", literal, err)
		}
		return prefixtree.BoolValue(b), nil
	case "null":
		return prefixtree.NullValue(), nil
	}
	return prefixtree.Value{}, fmt.Errorf("unknown value type %q", typ)
}

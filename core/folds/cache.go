package folds

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// innerCache holds the nested assignment per outer fold. Concurrent callers
// asking for the same fold share one build.
type innerCache struct {
	group singleflight.Group
	built sync.Map
}

func (c *innerCache) get(outerFold int, build func() (Assignment, error)) (Assignment, error) {
	if a, ok := c.built.Load(outerFold); ok {
		return a.(Assignment), nil
	}

	v, err, _ := c.group.Do(strconv.Itoa(outerFold), func() (interface{}, error) {
		if a, ok := c.built.Load(outerFold); ok {
			return a, nil
		}
		a, err := build()
		if err != nil {
			return nil, err
		}
		c.built.Store(outerFold, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Assignment), nil
}

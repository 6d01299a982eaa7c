package common

import "sort"

//ScheduleFunc is called with the argument of a scheduled or external call, e.g. the command to queue
type ScheduleFunc func(cmd string)

//ExtFunc binds a ScheduleFunc to the key events refer to it by
type ExtFunc struct {
	Key  string
	Func ScheduleFunc
}

//NewExtFunc generates an ExtFunc object
func NewExtFunc(key string, f ScheduleFunc) ExtFunc {
	return ExtFunc{
		Key:  key,
		Func: f,
	}
}

//ExtFuncs is the set of functions a component exposes
type ExtFuncs []ExtFunc

//NewExtFuncs generates an ExtFuncs object
func NewExtFuncs(fa ...ExtFunc) ExtFuncs {
	return fa
}

//ScheduleFuncs maps event types to the functions handling them
type ScheduleFuncs map[string]ScheduleFunc

//Add registers every function of funcs, later keys replace earlier ones
func (sf ScheduleFuncs) Add(funcs ...ExtFuncs) {
	for _, extF := range funcs {
		for _, f := range extF {
			sf[f.Key] = f.Func
		}
	}
}

//Keys returns the registered event types in sorted order
func (sf ScheduleFuncs) Keys() []string {
	keys := make([]string, 0, len(sf))
	for k := range sf {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

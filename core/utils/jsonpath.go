package utils

import (
	"time"

	"github.com/tidwall/gjson"
)

// FirstOf returns the first path of paths that exists in res.
func FirstOf(res gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// JSONTime reads a timestamp given either as an RFC 3339 string or as Unix seconds.
func JSONTime(res gjson.Result) (time.Time, bool) {
	switch res.Type {
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, res.Str)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case gjson.Number:
		sec := res.Float()
		return time.Unix(0, int64(sec*float64(time.Second))).UTC(), true
	}
	return time.Time{}, false
}

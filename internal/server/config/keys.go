package config

import (
	"reflect"
)

// KeyPaths returns every dotted configuration key, e.g.
// "server.redis.read_timeout".
func KeyPaths() []string {
	return collectKeys(reflect.TypeOf(ServerConfig{}), "")
}

func collectKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() == t.PkgPath() {
			keys = append(keys, collectKeys(f.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

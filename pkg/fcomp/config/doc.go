/*
Package config loads component manifests and runtime options.

Config wraps a map[string]any and provides typed accessors that return a
default when a key is missing or has the wrong type:

	cfg, err := config.FromFile("components.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	interval := cfg.Duration("frame_interval", 16*time.Millisecond)

ParseManifest turns a Config into a Manifest of ComponentSpec values, which
fcomp.Runtime.DefineSpec converts into component types.

Config is safe for concurrent reads. The underlying map must not be
modified after creation.
*/
package config

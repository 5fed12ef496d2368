package prog

import "flag"

// FlagSet wraps a [flag.FlagSet]. It also provides accessors for flags that
// are shared by multiple subprograms.
type FlagSet struct {
	*flag.FlagSet
	json *bool
}

// JSON returns a pointer to the value of the -json flag, registering it on
// the first call.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"show the output from -buildinfo or -version in JSON")
		fs.json = &json
	}
	return fs.json
}

// Package factory keeps named builders for the pluggable parts of the
// engine. The optimizer registers one builder per scheduling method, keyed
// by method name and built from the optimizer settings. Metrics sinks and
// audit stores register builders keyed by the type string of a
// ModuleConfig and decode their raw settings with Decode.
//
// Example usage:
//
//	stores := factory.Modules[audit.Store]("audit backend")
//	stores.MustRegister("jsonl", func(conf map[string]any) (audit.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return audit.NewJSONLStore(c.Path)
//	})
//	s, err := factory.Create(stores, factory.ModuleConfig{Type: "JSONL", Conf: map[string]any{"path": "audit.jsonl"}})
package factory

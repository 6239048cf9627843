// Package sdk is the runtime API MicroPress hands to a plugin.
//
// An SDK value is bound to one plugin identity and mediates everything the
// plugin does outside its own process memory:
//
//   - data: keys are namespaced as "<pluginID>#<key>" so plugins sharing a
//     table never see each other's entries
//   - secrets: names resolve to /micropress/plugins/<pluginID>/<name> in the
//     parameter store and are always decrypted
//   - network: outbound requests are checked against an internal-host deny
//     list, limited per destination host with a fixed window, bounded by a
//     timeout and audited before and after dispatch
//
// Construction is pure bookkeeping; New never performs I/O. NewAWS wires the
// default AWS collaborators.
//
// Usage:
//
//	s, err := sdk.NewAWS(ctx, sdk.Config{
//	    PluginID:  "archive",
//	    TableName: "micropress",
//	    Region:    "eu-central-1",
//	})
//	if err != nil {
//	    return err
//	}
//	token, found, err := s.GetSecret(ctx, "api-token")
package sdk

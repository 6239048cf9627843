// Package fakes provides test doubles for the AWS clients behind the plugin
// SDK collaborators.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior.
//
// Usage:
//
//	ssmFake := fakes.NewFakeSSMClient()
//	ssmFake.AddSecureStringParameter("/micropress/plugins/archive/api-token", "t0k3n")
//	store := secrets.NewParameterStoreWithClient(ssmFake)
//	s, _ := sdk.New(sdk.Config{PluginID: "archive"}, sdk.WithSecretStore(store))
//	// Test SDK methods...
package fakes

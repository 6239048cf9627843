// Package secrets implements the plugin SDK secret store on AWS Systems
// Manager Parameter Store.
package secrets

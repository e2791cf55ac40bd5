/*
Package strongbox provides interfaces to interact with secrets kept in a
managed secret storage service, backed by AWS Secrets Manager.

The SecretManager interface provides an abstraction to fetch, create, update,
delete, tag, list, and version-check secrets without needing to make direct
calls to the API to perform frequently-used operations.

The SecretsManagerClient interface provides a convenience wrapper around the
Secrets Manager API. If the SecretManager interface does not fulfill your
needs, you can make calls directly to the Secrets Manager API instead.
*/
package strongbox

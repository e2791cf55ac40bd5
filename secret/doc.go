/*
Package secret provides implementations to interact with secrets kept in AWS
Secrets Manager.

BasicSecretsManager provides an abstraction to fetch, create, update, delete,
tag, list, and version-check secrets without needing to make direct calls to
the Secrets Manager API to perform frequently-used operations.

BasicSecretsManagerClient provides a convenience wrapper around the Secrets
Manager API. If BasicSecretsManager does not fulfill your needs, you can make
calls directly to the Secrets Manager API instead.
*/
package secret

/*
Package mock provides mock implementations of interfaces for testing purposes.

The SecretsManagerClient and TagClient can be used for running tests without
relying on infrastructure in AWS to be set up.
*/
package mock

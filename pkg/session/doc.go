/*
Package session keeps live playgrounds.

A Manager owns one running engine per playground ID. Opening a playground loads
it from a ports.PlaygroundStore (or creates an empty one), saving writes the
current canvas back. Access to a playground is serialized in process with
reference-counted locks and, across replicas, with an optional
ports.DistributedLocker.
*/
package session

package database

// Name identifies a logical datastore shared through the adapter layer.
// The adapters package maps each name onto a concrete client (redis db
// index, dynamo table prefix).
type Name string

package playground

// Version is the release of the playground module.
// Release builds override it with -ldflags "-X github.com/aretw0/playground.Version=...".
var Version = "0.1.0-dev"

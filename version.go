package wit

// Version is the release of the wit client.
const Version = "0.3.0"

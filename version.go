package analytics

// Version is the client version.
const Version = "1.0.0"

package domain

// KeyPrefix is the namespace prefix for all ragdesk keys in the store.
const KeyPrefix = "ragdesk:"

package domain

// SuspensionEntry is one misuse-log row. Entries are append-only and their
// IDs increase monotonically.
type SuspensionEntry struct {
	ID         int64
	IDSAE      int64
	Credential string
	Date       string // dd/mm/yyyy
	Reason     string
}

// SuspensionInfo is what a search result shows about a suspended credential.
type SuspensionInfo struct {
	EntryID int64
	Reason  string
	Date    string
}

// SuspendRequest asks for a credential to be logged as suspended.
type SuspendRequest struct {
	IDSAE      int64
	Kind       CredentialKind
	Code       string
	Identifier string
	Reason     string
}

// SuspendOutcome is returned by a successful suspension. Version is the
// registry version a later search must observe to see the new entry.
type SuspendOutcome struct {
	Entry   SuspensionEntry
	Version int64
	// Results holds the re-run of the caller's search, when one was given.
	Results []SearchResult
}

// ConsoleStatus is reported to the console after sign-in.
type ConsoleStatus struct {
	RegistryVersion int64
}

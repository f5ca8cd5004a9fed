package caldav

// Calendar is one calendar collection on the server.
//
// ID is the last path segment of the collection URL; it is what the
// calendar_ids config subscribes to.
type Calendar struct {
	ID   string
	Name string
	Path string
}

package layouts

// Meta is what a page tells the layout about itself.
type Meta struct {
	Title       string
	Description string
	// Refresh reloads the page after this many seconds when set.
	Refresh int
}

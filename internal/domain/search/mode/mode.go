package mode

// Mode is the feed query strategy, chosen by precedence tag > keyword > default.
type Mode string

// Feed mode constants.
const (
	// Tag selects items carrying the first requested tag, narrowed in process by the rest.
	Tag Mode = "tag"
	// Keyword selects items whose search tokens intersect the keyword tokens.
	Keyword Mode = "keyword"
	// Default lists every item newest first.
	Default Mode = "default"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Tag || m == Keyword || m == Default
}

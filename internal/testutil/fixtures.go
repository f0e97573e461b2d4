package testutil

// Event is one line of the event log, keyed the way the log files are.
// UserID is a string in the source data; blank means an anonymous visitor.
type Event struct {
	Artist        *string  `json:"artist"`
	Auth          string   `json:"auth"`
	FirstName     string   `json:"firstName"`
	Gender        string   `json:"gender"`
	ItemInSession int      `json:"itemInSession"`
	LastName      string   `json:"lastName"`
	Length        *float64 `json:"length"`
	Level         string   `json:"level"`
	Location      string   `json:"location"`
	Method        string   `json:"method"`
	Page          string   `json:"page"`
	Registration  *float64 `json:"registration"`
	SessionID     int      `json:"sessionId"`
	Song          *string  `json:"song"`
	Status        int      `json:"status"`
	TS            int64    `json:"ts"`
	UserAgent     string   `json:"userAgent"`
	UserID        string   `json:"userId"`
}

// Song is one song-catalog document.
type Song struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// PlayEvent builds a NextSong event for a user.
func PlayEvent(userID, song, artist string, ts int64) Event {
	return Event{
		Artist:    Ptr(artist),
		Auth:      "Logged In",
		FirstName: "Test",
		Gender:    "F",
		LastName:  "User",
		Length:    Ptr(200.0),
		Level:     "free",
		Location:  "X",
		Method:    "PUT",
		Page:      "NextSong",
		SessionID: 1,
		Song:      Ptr(song),
		Status:    200,
		TS:        ts,
		UserAgent: "Y",
		UserID:    userID,
	}
}

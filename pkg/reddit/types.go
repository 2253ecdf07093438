package reddit

// listing is the subset of reddit's listing envelope used by the client
type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Children []child `json:"children"`
	} `json:"data"`
}

type child struct {
	Kind string   `json:"kind"`
	Data postData `json:"data"`
}

// postData holds the fields of a t3 (link/self post) thing
type postData struct {
	ID        string `json:"id"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	SelfText  string `json:"selftext"`
	IsSelf    bool   `json:"is_self"`
	Permalink string `json:"permalink"`
	URL       string `json:"url"`
	Score     int    `json:"score"`
}

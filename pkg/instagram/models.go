package instagram

// profileResponse is the subset of the web profile info payload we use
type profileResponse struct {
	Data struct {
		User struct {
			ID        string `json:"id"`
			Username  string `json:"username"`
			IsPrivate bool   `json:"is_private"`
			Media     struct {
				Edges []struct {
					Node struct {
						ID        string `json:"id"`
						Shortcode string `json:"shortcode"`
						IsVideo   bool   `json:"is_video"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"edge_owner_to_timeline_media"`
		} `json:"user"`
	} `json:"data"`
	Status string `json:"status"`
}

// reelsResponse is the subset of the story reel feed payload we use
type reelsResponse struct {
	Reels map[string]struct {
		Items []struct {
			ID    string `json:"id"`
			Pk    string `json:"pk"`
			Taken int64  `json:"taken_at"`
		} `json:"items"`
	} `json:"reels"`
	Status string `json:"status"`
}

// actionResponse is the generic status payload returned by write endpoints
type actionResponse struct {
	Status string `json:"status"`
}

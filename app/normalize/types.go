package normalize

// Raw payload variants, one per platform family. These are the only types in
// the codebase allowed to carry platform-specific field names.

// TweetPayload covers tweet objects from search APIs, both the flat v1 shape
// and the nested v2 author/metrics shape.
type TweetPayload struct {
	ID       string `json:"id"`
	IDStr    string `json:"id_str"`
	Text     string `json:"text"`
	FullText string `json:"full_text"`
	Lang     string `json:"lang"`

	CreatedAt string `json:"created_at"`

	Author struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Location string `json:"location"`
	} `json:"author"`
	User struct {
		ScreenName string `json:"screen_name"`
		Location   string `json:"location"`
	} `json:"user"`

	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		ReplyCount   int `json:"reply_count"`
		RetweetCount int `json:"retweet_count"`
		QuoteCount   int `json:"quote_count"`
		ViewCount    int `json:"impression_count"`
	} `json:"public_metrics"`
	FavoriteCount int `json:"favorite_count"`
	RetweetCount  int `json:"retweet_count"`

	Entities struct {
		Hashtags []struct {
			Tag  string `json:"tag"`
			Text string `json:"text"`
		} `json:"hashtags"`
		Mentions []struct {
			Username   string `json:"username"`
			ScreenName string `json:"screen_name"`
		} `json:"mentions"`
		URLs []struct {
			ExpandedURL string `json:"expanded_url"`
		} `json:"urls"`
		Media []struct {
			MediaURL string `json:"media_url_https"`
		} `json:"media"`
	} `json:"entities"`

	Geo struct {
		Place string `json:"full_name"`
	} `json:"geo"`
}

// ScrapedPostPayload covers scraped page/profile posts as actor datasets
// return them (instagram, facebook, tiktok).
type ScrapedPostPayload struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	ShortCode string `json:"shortCode"`
	URL       string `json:"url"`

	PostText string `json:"postText"`
	Caption  string `json:"caption"`
	Text     string `json:"text"`

	OwnerUsername string `json:"ownerUsername"`
	AuthorName    string `json:"authorName"`
	PageName      string `json:"pageName"`

	Timestamp   string `json:"timestamp"`
	PublishedAt string `json:"publishedAt"`
	CreateTime  int64  `json:"createTime"`

	LikesCount    any `json:"likesCount"`
	Reactions     any `json:"reactions"`
	CommentsCount any `json:"commentsCount"`
	SharesCount   any `json:"sharesCount"`
	PlayCount     any `json:"playCount"`
	ViewsCount    any `json:"viewsCount"`

	Hashtags  []string `json:"hashtags"`
	Mentions  []string `json:"mentions"`
	ImageURL  string   `json:"displayUrl"`
	VideoURL  string   `json:"videoUrl"`
	MediaURLs []string `json:"images"`

	LocationName string `json:"locationName"`
}

// NewsArticlePayload is the stable record shape the news adapter emits.
type NewsArticlePayload struct {
	GUID        string   `json:"guid"`
	Link        string   `json:"link"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	FullText    string   `json:"full_text"`
	Author      string   `json:"author"`
	Categories  []string `json:"categories"`
	Published   string   `json:"published"`
}

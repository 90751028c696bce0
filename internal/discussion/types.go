// Package discussion reads and writes journal entries stored as comments of
// a GitHub Discussion.
package discussion

import "time"

type Discussion struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	Comments []Comment `json:"comments"`
}

// Comment is one journal entry.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type discussionResponse struct {
	Repository *struct {
		Discussion *struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			URL      string `json:"url"`
			Comments struct {
				Edges []struct {
					Node Comment `json:"node"`
				} `json:"edges"`
			} `json:"comments"`
		} `json:"discussion"`
	} `json:"repository"`
}

type discussionIDResponse struct {
	Repository *struct {
		Discussion *struct {
			ID string `json:"id"`
		} `json:"discussion"`
	} `json:"repository"`
}

type repositoryIDResponse struct {
	Repository *struct {
		ID string `json:"id"`
	} `json:"repository"`
}

type categoriesResponse struct {
	Repository *struct {
		DiscussionCategories struct {
			Nodes []Category `json:"nodes"`
		} `json:"discussionCategories"`
	} `json:"repository"`
}

type addCommentResponse struct {
	AddDiscussionComment struct {
		Comment Comment `json:"comment"`
	} `json:"addDiscussionComment"`
}

type updateCommentResponse struct {
	UpdateDiscussionComment struct {
		Comment Comment `json:"comment"`
	} `json:"updateDiscussionComment"`
}

type createDiscussionResponse struct {
	CreateDiscussion struct {
		Discussion Discussion `json:"discussion"`
	} `json:"createDiscussion"`
}

type viewerResponse struct {
	Viewer struct {
		Login string `json:"login"`
	} `json:"viewer"`
}

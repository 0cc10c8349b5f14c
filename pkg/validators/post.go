package validators

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 120
	MaxDescriptionLength = 5000
	MaxCommentLength     = 1000
	MaxImages            = 10
	MaxVideos            = 2
)

var (
	ErrTitleEmpty          = errors.New("title can't be empty")
	ErrTitleTooLong        = fmt.Errorf("title can't be longer than %d characters", MaxTitleLength)
	ErrDescriptionEmpty    = errors.New("description can't be empty")
	ErrDescriptionTooLong  = fmt.Errorf("description can't be longer than %d characters", MaxDescriptionLength)
	ErrTooManyImages       = fmt.Errorf("a post can have at most %d images", MaxImages)
	ErrTooManyVideos       = fmt.Errorf("a post can have at most %d videos", MaxVideos)
	ErrMediaURLInvalid     = errors.New("media must be uploaded through the media endpoint")
	ErrSocialLinkInvalid   = errors.New("invalid social link provided")
	ErrCommentEmpty        = errors.New("comment can't be empty")
	ErrCommentTooLong      = fmt.Errorf("comment can't be longer than %d characters", MaxCommentLength)
	ErrWarningMessageEmpty = errors.New("warning message can't be empty")
)

// PostContent is the user-editable part of a post
type PostContent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	Videos       []string `json:"videos"`
	FacebookURL  *string  `json:"facebookUrl"`
	InstagramURL *string  `json:"instagramUrl"`
	TiktokURL    *string  `json:"tiktokUrl"`
	WebsiteURL   *string  `json:"websiteUrl"`
}

// PostValidator trims the content in place and checks it. cdnURL is the
// prefix every media URL has to start with; empty disables that check.
func PostValidator(p *PostContent, cdnURL string) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)

	if p.Title == "" {
		return ErrTitleEmpty
	}

	if utf8.RuneCountInString(p.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	if p.Description == "" {
		return ErrDescriptionEmpty
	}

	if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}

	if len(p.Images) > MaxImages {
		return ErrTooManyImages
	}

	if len(p.Videos) > MaxVideos {
		return ErrTooManyVideos
	}

	for _, u := range append(append([]string{}, p.Images...), p.Videos...) {
		if !mediaURLValid(u, cdnURL) {
			return ErrMediaURLInvalid
		}
	}

	for _, link := range []**string{&p.FacebookURL, &p.InstagramURL, &p.TiktokURL, &p.WebsiteURL} {
		if *link == nil {
			continue
		}

		trimmed := strings.TrimSpace(**link)
		if trimmed == "" {
			*link = nil
			continue
		}

		if !httpURL(trimmed) {
			return ErrSocialLinkInvalid
		}

		*link = &trimmed
	}

	return nil
}

// CommentValidator trims c and checks its length
func CommentValidator(c string) (string, error) {
	c = strings.TrimSpace(c)
	if c == "" {
		return "", ErrCommentEmpty
	}

	if utf8.RuneCountInString(c) > MaxCommentLength {
		return "", ErrCommentTooLong
	}

	return c, nil
}

func mediaURLValid(u, cdnURL string) bool {
	if !httpURL(u) {
		return false
	}

	if cdnURL == "" {
		return true
	}

	return strings.HasPrefix(u, strings.TrimSuffix(cdnURL, "/")+"/")
}

func httpURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// MediaURLValidator checks a single uploaded media URL, like an avatar
func MediaURLValidator(u, cdnURL string) error {
	if !mediaURLValid(u, cdnURL) {
		return ErrMediaURLInvalid
	}

	return nil
}

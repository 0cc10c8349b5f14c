package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailValidator(t *testing.T) {
	assert.NoError(t, EmailValidator("someone@example.com"))
	assert.ErrorIs(t, EmailValidator(""), ErrEmailEmpty)
	assert.ErrorIs(t, EmailValidator("nope"), ErrEmailInvalid)
	assert.ErrorIs(t, EmailValidator("Someone <someone@example.com>"), ErrEmailInvalid)

	assert.Equal(t, "someone@example.com", NormalizeEmail("  SomeOne@Example.com "))
}

func TestPasswordValidator(t *testing.T) {
	assert.NoError(t, PasswordValidator("hunter22hunter"))
	assert.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	assert.ErrorIs(t, PasswordValidator("a1"), ErrPasswordTooShort)
	assert.ErrorIs(t, PasswordValidator("onlyletters"), ErrPasswordWeak)
	assert.ErrorIs(t, PasswordValidator(strings.Repeat("a1", 200)), ErrPasswordTooLong)
}

func TestUsernameValidator(t *testing.T) {
	assert.NoError(t, UsernameValidator("szonisko_01"))
	assert.ErrorIs(t, UsernameValidator(""), ErrUsernameEmpty)
	assert.ErrorIs(t, UsernameValidator("ab"), ErrUsernameInvalid)
	assert.ErrorIs(t, UsernameValidator("has space"), ErrUsernameInvalid)
}

func TestPostValidator(t *testing.T) {
	cdn := "https://cdn.example.com"
	empty := "  "
	site := " https://example.com "

	p := PostContent{
		Title:       "  Hello  ",
		Description: "World",
		Images:      []string{cdn + "/posts/u/a.png"},
		FacebookURL: &empty,
		WebsiteURL:  &site,
	}

	require.NoError(t, PostValidator(&p, cdn))
	assert.Equal(t, "Hello", p.Title)
	assert.Nil(t, p.FacebookURL)
	assert.Equal(t, "https://example.com", *p.WebsiteURL)

	p.Images = []string{"https://evil.example.com/a.png"}
	assert.ErrorIs(t, PostValidator(&p, cdn), ErrMediaURLInvalid)

	p.Images = nil
	bad := "javascript:alert(1)"
	p.WebsiteURL = &bad
	assert.ErrorIs(t, PostValidator(&p, cdn), ErrSocialLinkInvalid)

	assert.ErrorIs(t, PostValidator(&PostContent{Description: "x"}, cdn), ErrTitleEmpty)
	assert.ErrorIs(t, PostValidator(&PostContent{Title: "x"}, cdn), ErrDescriptionEmpty)
	assert.ErrorIs(t, PostValidator(&PostContent{Title: strings.Repeat("x", MaxTitleLength+1), Description: "x"}, cdn), ErrTitleTooLong)
}

func TestCommentValidator(t *testing.T) {
	c, err := CommentValidator("  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", c)

	_, err = CommentValidator("   ")
	assert.ErrorIs(t, err, ErrCommentEmpty)

	_, err = CommentValidator(strings.Repeat("x", MaxCommentLength+1))
	assert.ErrorIs(t, err, ErrCommentTooLong)
}

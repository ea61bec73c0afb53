package service

import "github.com/spcfox/sharetext/models"

// Read/write policy is decided purely from the requester (nil when
// anonymous), the text's author and its visibility. Listing enumeration is
// stricter than CanRead: only Public texts are ever listed, Unlisted ones
// are reachable solely through their exact opaque id.

func CanRead(requesterId *int64, text models.Text) bool {
	if text.Visibility != models.VisibilityPrivate {
		return true
	}
	return CanEdit(requesterId, text)
}

func CanEdit(requesterId *int64, text models.Text) bool {
	return requesterId != nil && *requesterId == text.AuthorId
}

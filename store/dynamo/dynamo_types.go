package dynamo

import (
	"strconv"

	"github.com/spcfox/sharetext/models"
)

type dynamoAccount struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	Id      int64  `dynamodbav:"Id"`
	Name    string `dynamodbav:"Name"`
	Salt    string `dynamodbav:"Salt"`
	Created int64  `dynamodbav:"Created"`
}

func accountPK(accountId int64) string {
	return "ACCOUNT#" + strconv.FormatInt(accountId, 10)
}

// Map domain Account -> Dynamo
func accountToDynamo(a models.Account) dynamoAccount {
	return dynamoAccount{
		PK:      accountPK(a.Id),
		SK:      "PROFILE",
		Id:      a.Id,
		Name:    a.Name,
		Salt:    a.Salt,
		Created: a.Created,
	}
}

// Map Dynamo -> domain Account
func accountFromDynamo(da dynamoAccount) models.Account {
	return models.Account{
		Id:      da.Id,
		Name:    da.Name,
		Salt:    da.Salt,
		Created: da.Created,
	}
}

// dynamoText carries two GSI keys besides the main PK/SK:
// ListKey is only written for public texts, which keeps GSI_PublicTexts
// sparse, and AuthorPK feeds GSI_AuthorTexts. Both indexes sort on
// CreatedAt.
type dynamoText struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Id         int64  `dynamodbav:"Id"`
	Title      string `dynamodbav:"Title"`
	Body       string `dynamodbav:"Body"`
	AuthorId   int64  `dynamodbav:"AuthorId"`
	AuthorName string `dynamodbav:"AuthorName"`
	Visibility string `dynamodbav:"Visibility"`
	Views      int64  `dynamodbav:"Views"`
	CreatedAt  int64  `dynamodbav:"CreatedAt"`
	EditedAt   int64  `dynamodbav:"EditedAt"`
	ListKey    string `dynamodbav:"ListKey,omitempty"`
	AuthorPK   string `dynamodbav:"AuthorPK"`
}

const publicListKey = "PUBLIC"

func textPK(textId int64) string {
	return "TEXT#" + strconv.FormatInt(textId, 10)
}

func authorPK(authorId int64) string {
	return "AUTHOR#" + strconv.FormatInt(authorId, 10)
}

// Map domain Text -> Dynamo
func textToDynamo(t models.Text) dynamoText {
	dt := dynamoText{
		PK:         textPK(t.Id),
		SK:         "META",
		Id:         t.Id,
		Title:      t.Title,
		Body:       t.Body,
		AuthorId:   t.AuthorId,
		AuthorName: t.AuthorName,
		Visibility: t.Visibility.String(),
		Views:      t.Views,
		CreatedAt:  t.CreatedAt,
		EditedAt:   t.EditedAt,
		AuthorPK:   authorPK(t.AuthorId),
	}
	if t.Visibility == models.VisibilityPublic {
		dt.ListKey = publicListKey
	}
	return dt
}

// Map Dynamo -> domain Text
func textFromDynamo(dt dynamoText) models.Text {
	visibility, _ := models.ParseVisibility(dt.Visibility)
	return models.Text{
		Id:         dt.Id,
		Title:      dt.Title,
		Body:       dt.Body,
		AuthorId:   dt.AuthorId,
		AuthorName: dt.AuthorName,
		Visibility: visibility,
		Views:      dt.Views,
		CreatedAt:  dt.CreatedAt,
		EditedAt:   dt.EditedAt,
	}
}

// Counter items hand out sequential numeric ids
type dynamoCounter struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	Value int64  `dynamodbav:"Value"`
}

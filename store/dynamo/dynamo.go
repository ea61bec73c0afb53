package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spcfox/sharetext/models"
)

const (
	accountSequence = "ACCOUNT"
	textSequence    = "TEXT"

	publicTextsIndex = "GSI_PublicTexts"
	authorTextsIndex = "GSI_AuthorTexts"
)

type DynamoShareTextStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoShareTextStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoShareTextStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoShareTextStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoShareTextStore) CreateAccount(ctx context.Context, name string, salt string) (models.Account, error) {
	accountId, err := nextSequence(dynamoStore, ctx, accountSequence)
	if err != nil {
		return models.Account{}, err
	}

	account := models.Account{
		Id:      accountId,
		Name:    name,
		Salt:    salt,
		Created: time.Now().UnixMilli(),
	}

	if err := putNewItem(dynamoStore, ctx, accountToDynamo(account)); err != nil {
		return models.Account{}, err
	}

	return account, nil
}

// GetAccount reads with consistency: the salt it returns is what token
// checks compare against, so a just-rotated salt must be visible.
func (dynamoStore *DynamoShareTextStore) GetAccount(ctx context.Context, accountId int64) (models.Account, error) {
	da, err := getItem[dynamoAccount](dynamoStore, ctx, accountPK(accountId), "PROFILE", true)
	if err != nil {
		return models.Account{}, err
	}

	return accountFromDynamo(da), nil
}

func (dynamoStore *DynamoShareTextStore) UpdateAccountName(ctx context.Context, accountId int64, name string) (models.Account, error) {
	da, err := updateItemParts[dynamoAccount](
		dynamoStore, ctx,
		accountPK(accountId), "PROFILE",
		"SET #n = :name",
		map[string]string{"#n": "Name"},
		map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
		"",
	)
	if err != nil {
		return models.Account{}, err
	}

	return accountFromDynamo(da), nil
}

func (dynamoStore *DynamoShareTextStore) UpdateAccountSalt(ctx context.Context, accountId int64, currentSalt string, newSalt string) (models.Account, error) {
	da, err := updateItemParts[dynamoAccount](
		dynamoStore, ctx,
		accountPK(accountId), "PROFILE",
		"SET #s = :new",
		map[string]string{"#s": "Salt"},
		map[string]types.AttributeValue{
			":new": &types.AttributeValueMemberS{Value: newSalt},
			":cur": &types.AttributeValueMemberS{Value: currentSalt},
		},
		"#s = :cur",
	)
	if err != nil {
		return models.Account{}, err
	}

	return accountFromDynamo(da), nil
}

func (dynamoStore *DynamoShareTextStore) DeleteAccount(ctx context.Context, accountId int64) error {
	_, err := deleteItemReturnOld[dynamoAccount](dynamoStore, ctx, accountPK(accountId), "PROFILE", "", nil)
	return err
}

func (dynamoStore *DynamoShareTextStore) CreateText(ctx context.Context, text models.Text) (models.Text, error) {
	textId, err := nextSequence(dynamoStore, ctx, textSequence)
	if err != nil {
		return models.Text{}, err
	}

	now := time.Now().UnixMilli()
	text.Id = textId
	text.Views = 0
	text.CreatedAt = now
	text.EditedAt = now

	if err := putNewItem(dynamoStore, ctx, textToDynamo(text)); err != nil {
		return models.Text{}, err
	}

	return text, nil
}

func (dynamoStore *DynamoShareTextStore) GetText(ctx context.Context, textId int64) (models.Text, error) {
	dt, err := getItem[dynamoText](dynamoStore, ctx, textPK(textId), "META", false)
	if err != nil {
		return models.Text{}, err
	}

	return textFromDynamo(dt), nil
}

// UpdateText applies only the provided fields, stamps EditedAt and keeps
// the sparse ListKey attribute in step with visibility. The ownership
// condition makes an edit by anyone but the author fail.
func (dynamoStore *DynamoShareTextStore) UpdateText(ctx context.Context, authorId int64, textId int64, title *string, body *string, visibility *models.Visibility) (models.Text, error) {
	editedAt := time.Now().UnixMilli()

	setParts := []string{"#e = :editedAt"}
	removeParts := []string{}
	exprAttrNames := map[string]string{
		"#e": "EditedAt",
		"#a": "AuthorId",
	}
	exprAttrValues := map[string]types.AttributeValue{
		":editedAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(editedAt, 10)},
		":author":   &types.AttributeValueMemberN{Value: strconv.FormatInt(authorId, 10)},
	}

	if title != nil {
		setParts = append(setParts, "#t = :title")
		exprAttrNames["#t"] = "Title"
		exprAttrValues[":title"] = &types.AttributeValueMemberS{Value: *title}
	}
	if body != nil {
		setParts = append(setParts, "#b = :body")
		exprAttrNames["#b"] = "Body"
		exprAttrValues[":body"] = &types.AttributeValueMemberS{Value: *body}
	}
	if visibility != nil {
		setParts = append(setParts, "#v = :visibility")
		exprAttrNames["#v"] = "Visibility"
		exprAttrValues[":visibility"] = &types.AttributeValueMemberS{Value: visibility.String()}

		exprAttrNames["#lk"] = "ListKey"
		if *visibility == models.VisibilityPublic {
			setParts = append(setParts, "#lk = :listKey")
			exprAttrValues[":listKey"] = &types.AttributeValueMemberS{Value: publicListKey}
		} else {
			removeParts = append(removeParts, "#lk")
		}
	}

	updateExpr := "SET " + strings.Join(setParts, ", ")
	if len(removeParts) > 0 {
		updateExpr += " REMOVE " + strings.Join(removeParts, ", ")
	}

	dt, err := updateItemParts[dynamoText](
		dynamoStore, ctx,
		textPK(textId), "META",
		updateExpr,
		exprAttrNames,
		exprAttrValues,
		"#a = :author",
	)
	if err != nil {
		return models.Text{}, err
	}

	// An edit in the same millisecond as creation would leave the two
	// stamps equal; nudge EditedAt so it always orders after CreatedAt.
	if dt.EditedAt <= dt.CreatedAt {
		fixed := dt.CreatedAt + 1
		dt, err = updateItemParts[dynamoText](
			dynamoStore, ctx,
			textPK(textId), "META",
			"SET #e = :editedAt",
			map[string]string{"#e": "EditedAt"},
			map[string]types.AttributeValue{
				":editedAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(fixed, 10)},
			},
			"",
		)
		if err != nil {
			return models.Text{}, err
		}
	}

	return textFromDynamo(dt), nil
}

func (dynamoStore *DynamoShareTextStore) DeleteText(ctx context.Context, authorId int64, textId int64) (models.Text, error) {
	dt, err := deleteItemReturnOld[dynamoText](
		dynamoStore, ctx,
		textPK(textId), "META",
		"AuthorId = :author",
		map[string]types.AttributeValue{
			":author": &types.AttributeValueMemberN{Value: strconv.FormatInt(authorId, 10)},
		},
	)
	if err != nil {
		return models.Text{}, err
	}

	return textFromDynamo(dt), nil
}

func (dynamoStore *DynamoShareTextStore) ListPublicTexts(ctx context.Context, page int, pageSize int) ([]models.Text, error) {
	dynamoTexts, err := queryPageByGSI[dynamoText](dynamoStore, ctx, publicTextsIndex, "ListKey", publicListKey, page*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	texts := make([]models.Text, 0, len(dynamoTexts))
	for _, dt := range dynamoTexts {
		texts = append(texts, textFromDynamo(dt))
	}

	return texts, nil
}

func (dynamoStore *DynamoShareTextStore) ListTextsByAuthor(ctx context.Context, authorId int64, page int, pageSize int) ([]models.Text, error) {
	dynamoTexts, err := queryPageByGSI[dynamoText](dynamoStore, ctx, authorTextsIndex, "AuthorPK", authorPK(authorId), page*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	texts := make([]models.Text, 0, len(dynamoTexts))
	for _, dt := range dynamoTexts {
		texts = append(texts, textFromDynamo(dt))
	}

	return texts, nil
}

func (dynamoStore *DynamoShareTextStore) GetAuthorTextIds(ctx context.Context, authorId int64) ([]int64, error) {
	pks, err := queryAllByGSI(dynamoStore, ctx, authorTextsIndex, "AuthorPK", authorPK(authorId))
	if err != nil {
		return nil, err
	}

	textIds := make([]int64, 0, len(pks))
	for _, pk := range pks {
		// PK format is TEXT#<id>
		if !strings.HasPrefix(pk, "TEXT#") {
			continue
		}
		textId, err := strconv.ParseInt(pk[5:], 10, 64)
		if err != nil {
			continue
		}
		textIds = append(textIds, textId)
	}

	return textIds, nil
}

func (dynamoStore *DynamoShareTextStore) DeleteAuthorTexts(ctx context.Context, authorId int64) error {
	return batchDeleteByGSIThrottled(dynamoStore, ctx, authorTextsIndex, "AuthorPK", authorPK(authorId), 50*time.Millisecond)
}

func (dynamoStore *DynamoShareTextStore) IncrementTextViews(ctx context.Context, textId int64, delta int) error {
	return addToCounterField(dynamoStore, ctx, textPK(textId), "META", "Views", delta)
}

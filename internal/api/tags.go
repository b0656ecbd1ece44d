package api

import (
	"context"
	"fmt"

	"github.com/tgienger/stride/internal/models"
)

// TagGroupInput is the body of a tag group creation request
type TagGroupInput struct {
	Name           string `json:"name"`
	IsSingleSelect bool   `json:"is_single_select"`
	AllowAddTags   bool   `json:"allow_add_tags"`
}

// ListTagGroups returns all tag groups
func (c *Client) ListTagGroups(ctx context.Context) ([]models.TagGroup, error) {
	var dtos []tagGroupDTO
	if err := c.Get(ctx, "/tasks/tag-groups", nil, &dtos); err != nil {
		return nil, err
	}
	groups := make([]models.TagGroup, len(dtos))
	for i, d := range dtos {
		groups[i] = d.toModel()
	}
	return groups, nil
}

// CreateTagGroup creates a new tag group
func (c *Client) CreateTagGroup(ctx context.Context, in TagGroupInput) (*models.TagGroup, error) {
	var dto tagGroupDTO
	if err := c.Post(ctx, "/tasks/tag-groups", in, &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		return nil, &Error{Kind: KindParse, Method: "POST", Path: "/tasks/tag-groups", Err: fmt.Errorf("response has no id")}
	}
	g := dto.toModel()
	return &g, nil
}

// ListTags returns all tags in a specific group
func (c *Client) ListTags(ctx context.Context, groupID string) ([]models.Tag, error) {
	var dtos []tagDTO
	if err := c.Get(ctx, "/tasks/tag-groups/"+idPath(groupID)+"/tags", nil, &dtos); err != nil {
		return nil, err
	}
	tags := make([]models.Tag, len(dtos))
	for i, d := range dtos {
		tags[i] = d.toModel()
		if tags[i].GroupID == "" {
			tags[i].GroupID = groupID
		}
	}
	return tags, nil
}

// CreateTag creates a new tag in a group
func (c *Client) CreateTag(ctx context.Context, groupID, name string) (*models.Tag, error) {
	body := map[string]string{"name": name, "tag_group_id": groupID}
	var dto tagDTO
	if err := c.Post(ctx, "/tasks/tags", body, &dto); err != nil {
		return nil, err
	}
	t := dto.toModel()
	if t.GroupID == "" {
		t.GroupID = groupID
	}
	if t.Name == "" {
		t.Name = name
	}
	return &t, nil
}

// ListCategories returns the flat category list used when no Category tag
// group exists
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var dtos []categoryDTO
	if err := c.Get(ctx, "/tasks/categories", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(dtos))
	for _, d := range dtos {
		if d != "" {
			out = append(out, string(d))
		}
	}
	return out, nil
}

package devserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tgienger/stride/internal/models"
)

type tagGroupJSON struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	IsSingleSelect bool   `json:"is_single_select"`
	AllowAddTags   bool   `json:"allow_add_tags"`
}

type tagJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TagGroupID int64  `json:"tag_group_id"`
}

func groupJSON(g models.TagGroup) tagGroupJSON {
	id, _ := strconv.ParseInt(g.ID, 10, 64)
	return tagGroupJSON{ID: id, Name: g.Name, IsSingleSelect: g.IsSingleSelect, AllowAddTags: g.AllowAddTags}
}

func tagToJSON(t models.Tag) tagJSON {
	id, _ := strconv.ParseInt(t.ID, 10, 64)
	gid, _ := strconv.ParseInt(t.GroupID, 10, 64)
	return tagJSON{ID: id, Name: t.Name, TagGroupID: gid}
}

// listTagGroups handles GET /tasks/tag-groups
func (s *Server) listTagGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListTagGroups()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]tagGroupJSON, len(groups))
	for i, g := range groups {
		out[i] = groupJSON(g)
	}
	writeJSON(w, http.StatusOK, out)
}

// createTagGroup handles POST /tasks/tag-groups
func (s *Server) createTagGroup(w http.ResponseWriter, r *http.Request) {
	in := struct {
		Name           string `json:"name"`
		IsSingleSelect *bool  `json:"is_single_select"`
		AllowAddTags   *bool  `json:"allow_add_tags"`
	}{}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g := models.TagGroup{Name: in.Name, IsSingleSelect: true, AllowAddTags: true}
	if in.IsSingleSelect != nil {
		g.IsSingleSelect = *in.IsSingleSelect
	}
	if in.AllowAddTags != nil {
		g.AllowAddTags = *in.AllowAddTags
	}

	created, err := s.store.CreateTagGroup(g)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupJSON(*created))
}

// listTags handles GET /tasks/tag-groups/{groupID}/tags
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTagsByGroup(mux.Vars(r)["groupID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]tagJSON, len(tags))
	for i, t := range tags {
		out[i] = tagToJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// createTag handles POST /tasks/tags
func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	in := struct {
		Name       string  `json:"name"`
		TagGroupID idValue `json:"tag_group_id"`
	}{}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.TagGroupID == "" {
		writeError(w, http.StatusUnprocessableEntity, "tag_group_id is required")
		return
	}

	created, err := s.store.CreateTag(string(in.TagGroupID), in.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagToJSON(*created))
}

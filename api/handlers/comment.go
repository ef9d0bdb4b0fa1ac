package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/models"
)

const maxCommentLength = 500

// Comment exported for testing purposes
type Comment struct {
	DB  databases.ComplaintDatabase
	UDB databases.UserDatabase
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// AddCommentHandler appends a comment to a complaint
func (c Comment) AddCommentHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["complaint_id"])
	if err != nil {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		config.ErrorStatus("comment text is required", http.StatusBadRequest, w, nil)
		return
	}
	if utf8.RuneCountInString(req.Text) > maxCommentLength {
		config.ErrorStatus("comment cannot exceed 500 characters", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		UserID:    identity.ID,
		Text:      req.Text,
		CreatedAt: time.Now(),
	}

	res, err := c.DB.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		config.ErrorStatus("failed to add comment", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, nil)
		return
	}

	c.resolveAuthors(ctx, []*models.Comment{&comment})

	b, err := json.Marshal(models.Response{Success: true, Message: "Comment added", Data: comment})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// ListCommentsHandler returns a complaint's comments in insertion order
func (c Comment) ListCommentsHandler(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["complaint_id"])
	if err != nil {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	complaint, err := c.DB.FindOne(ctx, bson.M{"_id": oid})
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to fetch complaint", http.StatusInternalServerError, w, err)
		return
	}

	comments := complaint.Comments
	if comments == nil {
		comments = []models.Comment{}
	}
	refs := make([]*models.Comment, len(comments))
	for i := range comments {
		refs[i] = &comments[i]
	}
	c.resolveAuthors(ctx, refs)

	b, err := json.Marshal(models.Response{Success: true, Count: models.ListCount(len(comments)), Data: comments})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteCommentHandler removes a comment. Author or admin only.
func (c Comment) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())
	vars := mux.Vars(r)

	oid, err := primitive.ObjectIDFromHex(vars["complaint_id"])
	if err != nil {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}
	cid, err := primitive.ObjectIDFromHex(vars["comment_id"])
	if err != nil {
		config.ErrorStatus("comment not found", http.StatusNotFound, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	complaint, err := c.DB.FindOne(ctx, bson.M{"_id": oid})
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to fetch complaint", http.StatusInternalServerError, w, err)
		return
	}

	comment := complaint.FindComment(cid)
	if comment == nil {
		config.ErrorStatus("comment not found", http.StatusNotFound, w, nil)
		return
	}
	if comment.UserID != identity.ID && !identity.IsAdmin() {
		config.ErrorStatus("not authorized to delete this comment", http.StatusForbidden, w, nil)
		return
	}

	_, err = c.DB.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": cid}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		config.ErrorStatus("failed to delete comment", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "Comment deleted"})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// resolveAuthors fills the Author field on comments with one batched
// lookup. Deleted accounts render as a placeholder.
func (c Comment) resolveAuthors(ctx context.Context, comments []*models.Comment) {
	if len(comments) == 0 {
		return
	}
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, cm := range comments {
		if !seen[cm.UserID] {
			seen[cm.UserID] = true
			ids = append(ids, cm.UserID)
		}
	}

	users, err := c.UDB.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		zap.S().Errorw("failed to resolve comment authors", "error", err)
	}
	byID := map[primitive.ObjectID]models.Reporter{}
	for _, u := range users {
		byID[u.ID] = models.Reporter{ID: u.ID, Name: u.Name, Email: u.Email}
	}

	for _, cm := range comments {
		if rep, ok := byID[cm.UserID]; ok {
			r := rep
			cm.Author = &r
		} else {
			cm.Author = &models.Reporter{ID: cm.UserID, Name: "Deleted user"}
		}
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/models"
)

// Field length caps, matching the stored schema
const (
	maxTitleLength       = 100
	maxLocationLength    = 200
	maxDescriptionLength = 1000
)

// Complaint exported for testing purposes
type Complaint struct {
	DB      databases.ComplaintDatabase
	UDB     databases.UserDatabase
	Uploads *Uploader
}

type createComplaintRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

// CreateComplaintHandler files a new complaint for the caller
func (c Complaint) CreateComplaintHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

	var req createComplaintRequest
	photo := ""
	if isMultipart(r) {
		p, err := c.Uploads.PhotoFromRequest(r)
		if err != nil {
			config.ErrorStatus("failed to process photo upload", http.StatusBadRequest, w, err)
			return
		}
		photo = p
		req.Title = r.FormValue("title")
		req.Category = r.FormValue("category")
		req.Priority = r.FormValue("priority")
		req.Location = r.FormValue("location")
		req.Description = r.FormValue("description")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
			return
		}
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	req.Location = strings.TrimSpace(req.Location)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Category == "" || req.Location == "" || req.Description == "" {
		config.ErrorStatus("title, category, location and description are required", http.StatusBadRequest, w, nil)
		return
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		config.ErrorStatus("title cannot exceed 100 characters", http.StatusBadRequest, w, nil)
		return
	}
	if utf8.RuneCountInString(req.Location) > maxLocationLength {
		config.ErrorStatus("location cannot exceed 200 characters", http.StatusBadRequest, w, nil)
		return
	}
	if utf8.RuneCountInString(req.Description) > maxDescriptionLength {
		config.ErrorStatus("description cannot exceed 1000 characters", http.StatusBadRequest, w, nil)
		return
	}
	if !models.ValidCategory(req.Category) {
		config.ErrorStatus("category must be one of: "+strings.Join(models.Categories, ", "), http.StatusBadRequest, w, nil)
		return
	}
	if req.Priority == "" {
		req.Priority = "Medium"
	}
	if !models.ValidPriority(req.Priority) {
		config.ErrorStatus("priority must be one of: "+strings.Join(models.Priorities, ", "), http.StatusBadRequest, w, nil)
		return
	}

	now := time.Now()
	complaint := models.Complaint{
		Title:       req.Title,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.Location,
		Description: req.Description,
		Status:      models.StatusReceived,
		Photo:       photo,
		SubmittedAt: now,
		ReportedBy:  identity.ID,
		Voters:      []models.Voter{},
		Comments:    []models.Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	id, err := c.DB.InsertOne(ctx, complaint)
	if err != nil {
		config.ErrorStatus("failed to create complaint", http.StatusInternalServerError, w, err)
		return
	}
	complaint.ID = id

	// the owner's lifetime report count rides along with the account
	if _, err := c.UDB.UpdateOne(ctx, bson.M{"_id": identity.ID}, bson.M{"$inc": bson.M{"stats.totalReports": 1}}); err != nil {
		zap.S().Errorw("failed to increment reporter stats", "error", err, "user", identity.ID.Hex())
	}

	c.resolveReporters(ctx, []*models.Complaint{&complaint})
	complaint.ComputeDerived(now)

	b, err := json.Marshal(models.Response{Success: true, Message: "Complaint registered successfully", Data: complaint})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// ListComplaintsHandler returns the public, filterable complaint feed
func (c Complaint) ListComplaintsHandler(w http.ResponseWriter, r *http.Request) {
	c.listComplaints(w, r, bson.M{})
}

// MyComplaintsHandler returns only the caller's complaints
func (c Complaint) MyComplaintsHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())
	c.listComplaints(w, r, bson.M{"reportedBy": identity.ID})
}

// AdminListComplaintsHandler is the admin feed, with an extra user filter
func (c Complaint) AdminListComplaintsHandler(w http.ResponseWriter, r *http.Request) {
	base := bson.M{}
	if user := r.URL.Query().Get("user"); user != "" {
		oid, err := primitive.ObjectIDFromHex(user)
		if err != nil {
			config.ErrorStatus("invalid user filter", http.StatusBadRequest, w, err)
			return
		}
		base["reportedBy"] = oid
	}
	c.listComplaints(w, r, base)
}

func (c Complaint) listComplaints(w http.ResponseWriter, r *http.Request, filter bson.M) {
	page, limit := parsePagination(r, 10)

	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	if category := r.URL.Query().Get("category"); category != "" {
		filter["category"] = category
	}
	if priority := r.URL.Query().Get("priority"); priority != "" {
		filter["priority"] = priority
	}
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": search, "$options": "i"}},
			{"description": bson.M{"$regex": search, "$options": "i"}},
			{"location": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	total, err := c.DB.CountDocuments(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to count complaints", http.StatusInternalServerError, w, err)
		return
	}

	sortOpt := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	complaints, err := c.DB.Find(ctx, filter, databases.PaginatedOpts(limit, page), sortOpt)
	if err != nil {
		config.ErrorStatus("failed to list complaints", http.StatusInternalServerError, w, err)
		return
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}

	now := time.Now()
	refs := make([]*models.Complaint, len(complaints))
	for i := range complaints {
		refs[i] = &complaints[i]
		complaints[i].ComputeDerived(now)
	}
	c.resolveReporters(ctx, refs)

	b, err := json.Marshal(models.Response{
		Success:    true,
		Count:      models.ListCount(len(complaints)),
		Data:       complaints,
		Pagination: paginationBlock(page, limit, total),
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ComplaintByIDHandler returns one complaint with its reporter populated
func (c Complaint) ComplaintByIDHandler(w http.ResponseWriter, r *http.Request) {
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

	c.resolveReporters(ctx, []*models.Complaint{complaint})
	complaint.ComputeDerived(time.Now())

	b, err := json.Marshal(models.Response{Success: true, Data: complaint})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateComplaintRequest struct {
	Title       *string `json:"title"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	AdminNotes  *string `json:"adminNotes"`
	AssignedTo  *struct {
		UserID string `json:"userId"`
	} `json:"assignedTo"`
}

// UpdateComplaintHandler lets the owner edit their complaint; admins can
// additionally change status, notes and assignment
func (c Complaint) UpdateComplaintHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["complaint_id"])
	if err != nil {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}

	var req updateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
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

	isOwner := complaint.ReportedBy == identity.ID
	if !isOwner && !identity.IsAdmin() {
		config.ErrorStatus("not authorized to update this complaint", http.StatusForbidden, w, nil)
		return
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			config.ErrorStatus("title cannot be empty", http.StatusBadRequest, w, nil)
			return
		}
		if utf8.RuneCountInString(strings.TrimSpace(*req.Title)) > maxTitleLength {
			config.ErrorStatus("title cannot exceed 100 characters", http.StatusBadRequest, w, nil)
			return
		}
		set["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		if !models.ValidCategory(*req.Category) {
			config.ErrorStatus("category must be one of: "+strings.Join(models.Categories, ", "), http.StatusBadRequest, w, nil)
			return
		}
		set["category"] = *req.Category
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			config.ErrorStatus("priority must be one of: "+strings.Join(models.Priorities, ", "), http.StatusBadRequest, w, nil)
			return
		}
		set["priority"] = *req.Priority
	}
	if req.Location != nil {
		if utf8.RuneCountInString(strings.TrimSpace(*req.Location)) > maxLocationLength {
			config.ErrorStatus("location cannot exceed 200 characters", http.StatusBadRequest, w, nil)
			return
		}
		set["location"] = strings.TrimSpace(*req.Location)
	}
	if req.Description != nil {
		if utf8.RuneCountInString(strings.TrimSpace(*req.Description)) > maxDescriptionLength {
			config.ErrorStatus("description cannot exceed 1000 characters", http.StatusBadRequest, w, nil)
			return
		}
		set["description"] = strings.TrimSpace(*req.Description)
	}

	resolvedDelta := 0
	if identity.IsAdmin() {
		if req.AdminNotes != nil {
			set["adminNotes"] = strings.TrimSpace(*req.AdminNotes)
		}
		if req.AssignedTo != nil {
			if err := c.applyAssignment(ctx, req.AssignedTo.UserID, set); err != nil {
				config.ErrorStatus("assigned user not found", http.StatusBadRequest, w, err)
				return
			}
		}
		if req.Status != nil {
			if !models.ValidStatus(*req.Status) {
				config.ErrorStatus("status must be one of: "+strings.Join(models.Statuses, ", "), http.StatusBadRequest, w, nil)
				return
			}
			set["status"] = *req.Status
			if *req.Status == models.StatusResolved && complaint.Status != models.StatusResolved {
				set["resolvedAt"] = time.Now()
				resolvedDelta = 1
			}
			if *req.Status != models.StatusResolved && complaint.Status == models.StatusResolved {
				set["resolvedAt"] = nil
				resolvedDelta = -1
			}
		}
	}

	if _, err := c.DB.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update complaint", http.StatusInternalServerError, w, err)
		return
	}

	// the counter only moves once the status change has landed
	if resolvedDelta != 0 {
		if _, err := c.UDB.UpdateOne(ctx, bson.M{"_id": complaint.ReportedBy}, bson.M{"$inc": bson.M{"stats.resolvedReports": resolvedDelta}}); err != nil {
			zap.S().Errorw("failed to update resolved stats", "error", err, "user", complaint.ReportedBy.Hex())
		}
	}

	updated, err := c.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to fetch updated complaint", http.StatusInternalServerError, w, err)
		return
	}
	c.resolveReporters(ctx, []*models.Complaint{updated})
	updated.ComputeDerived(time.Now())

	b, err := json.Marshal(models.Response{Success: true, Message: "Complaint updated", Data: updated})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
	AssignedTo *struct {
		UserID string `json:"userId"`
	} `json:"assignedTo"`
}

// AdminUpdateStatusHandler moves a complaint through its lifecycle. The
// resolved-report counter must track resolvedAt exactly, so the status
// flip is a single conditional update that only matches when the
// transition actually crosses the Resolved boundary.
func (c Complaint) AdminUpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["complaint_id"])
	if err != nil {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if !models.ValidStatus(req.Status) {
		config.ErrorStatus("status must be one of: "+strings.Join(models.Statuses, ", "), http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	set := bson.M{"status": req.Status, "updatedAt": time.Now()}
	if strings.TrimSpace(req.AdminNotes) != "" {
		set["adminNotes"] = strings.TrimSpace(req.AdminNotes)
	}
	if req.AssignedTo != nil {
		if err := c.applyAssignment(ctx, req.AssignedTo.UserID, set); err != nil {
			config.ErrorStatus("assigned user not found", http.StatusBadRequest, w, err)
			return
		}
	}

	before := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var prev *models.Complaint
	if req.Status == models.StatusResolved {
		set["resolvedAt"] = time.Now()
		// only matches when the complaint was not already resolved, so the
		// counter can never double-increment under concurrent requests
		prev, err = c.DB.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "status": bson.M{"$ne": models.StatusResolved}},
			bson.M{"$set": set}, before)
		if err == nil {
			if _, serr := c.UDB.UpdateOne(ctx, bson.M{"_id": prev.ReportedBy}, bson.M{"$inc": bson.M{"stats.resolvedReports": 1}}); serr != nil {
				zap.S().Errorw("failed to increment resolved stats", "error", serr, "user", prev.ReportedBy.Hex())
			}
		} else if err == mongo.ErrNoDocuments {
			// already resolved: refresh notes and assignment without touching counters
			delete(set, "resolvedAt")
			prev, err = c.DB.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, before)
		}
	} else {
		unresolve := bson.M{"$set": set, "$unset": bson.M{"resolvedAt": ""}}
		prev, err = c.DB.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "status": models.StatusResolved}, unresolve, before)
		if err == nil {
			if _, serr := c.UDB.UpdateOne(ctx, bson.M{"_id": prev.ReportedBy}, bson.M{"$inc": bson.M{"stats.resolvedReports": -1}}); serr != nil {
				zap.S().Errorw("failed to decrement resolved stats", "error", serr, "user", prev.ReportedBy.Hex())
			}
		} else if err == mongo.ErrNoDocuments {
			prev, err = c.DB.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, before)
		}
	}
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to update complaint status", http.StatusInternalServerError, w, err)
		return
	}

	updated, err := c.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to fetch updated complaint", http.StatusInternalServerError, w, err)
		return
	}
	c.resolveReporters(ctx, []*models.Complaint{updated})
	updated.ComputeDerived(time.Now())

	b, err := json.Marshal(models.Response{Success: true, Message: "Status updated to " + req.Status, Data: updated})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteComplaintHandler removes a complaint. Owner or admin only.
func (c Complaint) DeleteComplaintHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

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

	if complaint.ReportedBy != identity.ID && !identity.IsAdmin() {
		config.ErrorStatus("not authorized to delete this complaint", http.StatusForbidden, w, nil)
		return
	}

	if _, err := c.DB.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		config.ErrorStatus("failed to delete complaint", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "Complaint deleted successfully"})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// applyAssignment resolves an assignedTo payload into the update set. An
// empty userId clears the assignment.
func (c Complaint) applyAssignment(ctx context.Context, userID string, set bson.M) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		set["assignedTo"] = nil
		return nil
	}
	auid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	assignee, err := c.UDB.FindOne(ctx, bson.M{"_id": auid})
	if err != nil {
		return err
	}
	set["assignedTo"] = models.Assignment{UserID: assignee.ID, Name: assignee.Name, AssignedAt: time.Now()}
	return nil
}

// resolveReporters populates the Reporter field on each complaint with one
// batched lookup. Reporters whose accounts were deleted render as a
// placeholder instead of breaking the feed.
func (c Complaint) resolveReporters(ctx context.Context, complaints []*models.Complaint) {
	if len(complaints) == 0 {
		return
	}
	seen := map[primitive.ObjectID]bool{}
	ids := []primitive.ObjectID{}
	for _, cp := range complaints {
		if !seen[cp.ReportedBy] {
			seen[cp.ReportedBy] = true
			ids = append(ids, cp.ReportedBy)
		}
	}

	users, err := c.UDB.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		zap.S().Errorw("failed to resolve complaint reporters", "error", err)
	}
	byID := map[primitive.ObjectID]models.Reporter{}
	for _, u := range users {
		byID[u.ID] = models.Reporter{ID: u.ID, Name: u.Name, Email: u.Email}
	}

	for _, cp := range complaints {
		if rep, ok := byID[cp.ReportedBy]; ok {
			r := rep
			cp.Reporter = &r
		} else {
			cp.Reporter = &models.Reporter{ID: cp.ReportedBy, Name: "Deleted user"}
		}
	}
}

func parsePagination(r *http.Request, defaultLimit int) (page, limit int) {
	page = 1
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	return page, limit
}

func paginationBlock(page, limit int, total int64) *models.Pagination {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		pages = 1
	}
	return &models.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

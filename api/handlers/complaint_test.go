package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/api/handlers"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/databases/mocks"
	"github.com/cleanstreet/clean-street-api/models"
)

func complaintHandler(complaints, users *mocks.CollectionHelper) handlers.Complaint {
	db := &mocks.DatabaseHelper{}
	db.On("Collection", "complaints").Return(complaints)
	db.On("Collection", "users").Return(users)
	return handlers.Complaint{
		DB:  databases.NewComplaintDatabase(db),
		UDB: databases.NewUserDatabase(db),
	}
}

func complaintRequest(t *testing.T, method, complaintID, body string, identity api.Identity) *http.Request {
	url := "/api/complaints"
	if complaintID != "" {
		url += "/" + complaintID
	}
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if complaintID != "" {
		req = mux.SetURLVars(req, map[string]string{"complaint_id": complaintID})
	}
	return req.WithContext(api.SetIdentity(req.Context(), identity))
}

func TestComplaint_CreateComplaintHandlerMissingFields(t *testing.T) {
	c := handlers.Complaint{}

	req := complaintRequest(t, "POST", "", `{"title":"Pothole"}`, api.Identity{ID: primitive.NewObjectID(), Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "title, category, location and description are required")
}

func TestComplaint_CreateComplaintHandlerInvalidCategory(t *testing.T) {
	c := handlers.Complaint{}

	body := `{"title":"Pothole","category":"Potholes","location":"5th Ave","description":"Deep pothole"}`
	req := complaintRequest(t, "POST", "", body, api.Identity{ID: primitive.NewObjectID(), Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "category must be one of")
}

func TestComplaint_CreateComplaintHandler(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("InsertOne", mock.Anything, mock.Anything).Return(complaintID, nil)

	users := &mocks.CollectionHelper{}
	users.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	body := `{"title":"Pothole on 5th Ave","category":"Roads","location":"5th Ave","description":"Deep pothole near the crossing"}`
	req := complaintRequest(t, "POST", "", body, api.Identity{ID: ownerID, Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"Received"`)
	assert.Contains(t, rr.Body.String(), `"priority":"Medium"`)
	assert.Contains(t, rr.Body.String(), `"name":"Asha"`)
	// the owner's totalReports counter is bumped exactly once
	users.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestComplaint_CreateComplaintHandlerTitleTooLong(t *testing.T) {
	c := handlers.Complaint{}

	longTitle := strings.Repeat("x", 150)
	body := `{"title":"` + longTitle + `","category":"Roads","location":"5th Ave","description":"Deep pothole"}`
	req := complaintRequest(t, "POST", "", body, api.Identity{ID: primitive.NewObjectID(), Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "title cannot exceed 100 characters")
}

func TestComplaint_CreateComplaintHandlerTitleAtLimit(t *testing.T) {
	ownerID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("InsertOne", mock.Anything, mock.Anything).Return(primitive.NewObjectID(), nil)

	users := &mocks.CollectionHelper{}
	users.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	body := `{"title":"` + strings.Repeat("x", 100) + `","category":"Roads","location":"5th Ave","description":"Deep pothole"}`
	req := complaintRequest(t, "POST", "", body, api.Identity{ID: ownerID, Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestComplaint_CreateComplaintHandlerDescriptionTooLong(t *testing.T) {
	c := handlers.Complaint{}

	body := `{"title":"Pothole","category":"Roads","location":"5th Ave","description":"` + strings.Repeat("d", 1001) + `"}`
	req := complaintRequest(t, "POST", "", body, api.Identity{ID: primitive.NewObjectID(), Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.CreateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "description cannot exceed 1000 characters")
}

func TestComplaint_ListComplaintsHandler(t *testing.T) {
	ownerID := primitive.NewObjectID()
	now := time.Now()

	stored := []models.Complaint{
		{ID: primitive.NewObjectID(), Title: "Pothole", Category: "Roads", Status: models.StatusReceived, ReportedBy: ownerID, SubmittedAt: now},
		{ID: primitive.NewObjectID(), Title: "Broken light", Category: "Infrastructure", Status: models.StatusInProgress, ReportedBy: ownerID, SubmittedAt: now},
	}

	cur := &mocks.CursorHelper{}
	cur.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(0).(*[]models.Complaint)
		*out = stored
	})

	complaints := &mocks.CollectionHelper{}
	complaints.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(2), nil)
	complaints.On("Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cur, nil)

	users := &mocks.CollectionHelper{}
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	req := complaintRequest(t, "GET", "", "", api.Identity{ID: ownerID, Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ListComplaintsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":2`)
	assert.Contains(t, rr.Body.String(), `"total":2`)
	assert.Contains(t, rr.Body.String(), `"page":1`)
	assert.Contains(t, rr.Body.String(), `"name":"Asha"`)
}

func TestComplaint_ComplaintByIDHandlerMalformedID(t *testing.T) {
	c := handlers.Complaint{}

	req := complaintRequest(t, "GET", "not-an-id", "", api.Identity{ID: primitive.NewObjectID(), Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ComplaintByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "complaint not found")
}

func TestComplaint_UpdateComplaintHandlerForbidden(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(models.Complaint{
		ID: complaintID, Title: "Pothole", ReportedBy: ownerID, Status: models.StatusReceived,
	}))

	c := complaintHandler(complaints, &mocks.CollectionHelper{})

	stranger := api.Identity{ID: primitive.NewObjectID(), Role: "user"}
	req := complaintRequest(t, "PUT", complaintID.Hex(), `{"title":"Hijacked"}`, stranger)
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.UpdateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "not authorized to update this complaint")
	complaints.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplaint_DeleteComplaintHandlerOwner(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(models.Complaint{
		ID: complaintID, ReportedBy: ownerID,
	}))
	complaints.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)

	c := complaintHandler(complaints, &mocks.CollectionHelper{})

	req := complaintRequest(t, "DELETE", complaintID.Hex(), "", api.Identity{ID: ownerID, Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.DeleteComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Complaint deleted successfully")
}

func TestComplaint_AdminUpdateStatusHandlerInvalidStatus(t *testing.T) {
	c := handlers.Complaint{}

	req := complaintRequest(t, "PUT", primitive.NewObjectID().Hex(), `{"status":"Done"}`, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AdminUpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "status must be one of")
}

func TestComplaint_AdminUpdateStatusHandlerResolve(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()
	resolvedAt := time.Now()

	prior := models.Complaint{ID: complaintID, Status: models.StatusInProgress, ReportedBy: ownerID}
	resolved := models.Complaint{ID: complaintID, Status: models.StatusResolved, ReportedBy: ownerID, ResolvedAt: &resolvedAt}

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(decodeComplaint(prior))
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(resolved))

	users := &mocks.CollectionHelper{}
	users.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	req := complaintRequest(t, "PUT", complaintID.Hex(), `{"status":"Resolved"}`, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AdminUpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Status updated to Resolved")
	assert.Contains(t, rr.Body.String(), `"resolvedAt"`)
	// crossing into Resolved bumps the owner's resolvedReports exactly once
	users.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestComplaint_AdminUpdateStatusHandlerAlreadyResolved(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()
	resolvedAt := time.Now()

	resolved := models.Complaint{ID: complaintID, Status: models.StatusResolved, ReportedBy: ownerID, ResolvedAt: &resolvedAt}

	noMatch := &mocks.SingleResultHelper{}
	noMatch.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)

	complaints := &mocks.CollectionHelper{}
	// the conditional update misses because the complaint is already
	// resolved; the fallback update succeeds without touching counters
	complaints.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(noMatch).Once()
	complaints.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(decodeComplaint(resolved)).Once()
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(resolved))

	users := &mocks.CollectionHelper{}
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	req := complaintRequest(t, "PUT", complaintID.Hex(), `{"status":"Resolved","adminNotes":"crew verified"}`, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AdminUpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	users.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplaint_AdminUpdateStatusHandlerReopen(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()
	resolvedAt := time.Now()

	prior := models.Complaint{ID: complaintID, Status: models.StatusResolved, ReportedBy: ownerID, ResolvedAt: &resolvedAt}
	reopened := models.Complaint{ID: complaintID, Status: models.StatusInProgress, ReportedBy: ownerID}

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(decodeComplaint(prior))
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(reopened))

	users := &mocks.CollectionHelper{}
	users.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	req := complaintRequest(t, "PUT", complaintID.Hex(), `{"status":"In Progress"}`, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AdminUpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `"resolvedAt"`)
	// leaving Resolved decrements the owner's resolvedReports
	users.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestComplaint_ListComplaintsHandlerEmptyPage(t *testing.T) {
	cur := &mocks.CursorHelper{}
	cur.On("Decode", mock.Anything).Return(nil)

	complaints := &mocks.CollectionHelper{}
	complaints.On("CountDocuments", mock.Anything, mock.Anything).Return(int64(0), nil)
	complaints.On("Find", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(cur, nil)

	c := complaintHandler(complaints, &mocks.CollectionHelper{})

	req := complaintRequest(t, "GET", "", "", api.Identity{ID: primitive.NewObjectID(), Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ListComplaintsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"count":0`)
	assert.Contains(t, rr.Body.String(), `"total":0`)
}

func TestComplaint_UpdateComplaintHandlerLocationTooLong(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(models.Complaint{
		ID: complaintID, Title: "Pothole", ReportedBy: ownerID, Status: models.StatusReceived,
	}))

	c := complaintHandler(complaints, &mocks.CollectionHelper{})

	body := `{"location":"` + strings.Repeat("l", 201) + `"}`
	req := complaintRequest(t, "PUT", complaintID.Hex(), body, api.Identity{ID: ownerID, Role: "user"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.UpdateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "location cannot exceed 200 characters")
	complaints.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplaint_UpdateComplaintHandlerAssignsUser(t *testing.T) {
	ownerID := primitive.NewObjectID()
	assigneeID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	stored := models.Complaint{ID: complaintID, Title: "Pothole", ReportedBy: ownerID, Status: models.StatusReceived}

	setsAssignee := mock.MatchedBy(func(update interface{}) bool {
		m, ok := update.(bson.M)
		if !ok {
			return false
		}
		set, ok := m["$set"].(bson.M)
		if !ok {
			return false
		}
		a, ok := set["assignedTo"].(models.Assignment)
		return ok && a.UserID == assigneeID && a.Name == "Ravi"
	})

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(stored))
	complaints.On("UpdateOne", mock.Anything, mock.Anything, setsAssignee).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	users := &mocks.CollectionHelper{}
	users.On("FindOne", mock.Anything, mock.Anything).Return(decodeUser(models.User{ID: assigneeID, Name: "Ravi"}))
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	body := `{"assignedTo":{"userId":"` + assigneeID.Hex() + `"}}`
	req := complaintRequest(t, "PUT", complaintID.Hex(), body, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.UpdateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	complaints.AssertNumberOfCalls(t, "UpdateOne", 1)
}

func TestComplaint_UpdateComplaintHandlerUnknownAssignee(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(models.Complaint{
		ID: complaintID, ReportedBy: ownerID, Status: models.StatusReceived,
	}))

	users := &mocks.CollectionHelper{}
	users.On("FindOne", mock.Anything, mock.Anything).Return(noUser())

	c := complaintHandler(complaints, users)

	body := `{"assignedTo":{"userId":"` + primitive.NewObjectID().Hex() + `"}}`
	req := complaintRequest(t, "PUT", complaintID.Hex(), body, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.UpdateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "assigned user not found")
	complaints.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplaint_UpdateComplaintHandlerResolveWriteFails(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(models.Complaint{
		ID: complaintID, ReportedBy: ownerID, Status: models.StatusInProgress,
	}))
	complaints.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, mongo.ErrClientDisconnected)

	users := &mocks.CollectionHelper{}
	c := complaintHandler(complaints, users)

	req := complaintRequest(t, "PUT", complaintID.Hex(), `{"status":"Resolved"}`, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.UpdateComplaintHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	// a failed write must not move the owner's resolvedReports counter
	users.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestComplaint_AdminUpdateStatusHandlerClearAssignment(t *testing.T) {
	ownerID := primitive.NewObjectID()
	complaintID := primitive.NewObjectID()

	stored := models.Complaint{ID: complaintID, Status: models.StatusInProgress, ReportedBy: ownerID}

	clearsAssignee := mock.MatchedBy(func(update interface{}) bool {
		m, ok := update.(bson.M)
		if !ok {
			return false
		}
		set, ok := m["$set"].(bson.M)
		if !ok {
			return false
		}
		v, present := set["assignedTo"]
		return present && v == nil
	})

	noMatch := &mocks.SingleResultHelper{}
	noMatch.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)

	complaints := &mocks.CollectionHelper{}
	complaints.On("FindOneAndUpdate", mock.Anything, mock.Anything, clearsAssignee, mock.Anything).Return(noMatch).Once()
	complaints.On("FindOneAndUpdate", mock.Anything, mock.Anything, clearsAssignee, mock.Anything).Return(decodeComplaint(stored)).Once()
	complaints.On("FindOne", mock.Anything, mock.Anything).Return(decodeComplaint(stored))

	users := &mocks.CollectionHelper{}
	users.On("Find", mock.Anything, mock.Anything).Return(findUsers([]models.User{
		{ID: ownerID, Name: "Asha", Email: "asha@example.com"},
	}), nil)

	c := complaintHandler(complaints, users)

	body := `{"status":"In Progress","assignedTo":{"userId":""}}`
	req := complaintRequest(t, "PUT", complaintID.Hex(), body, api.Identity{ID: primitive.NewObjectID(), Role: "admin"})
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AdminUpdateStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	// clearing an assignment never hits the user lookup
	users.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}

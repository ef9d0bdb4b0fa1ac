package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/models"
)

// Vote exported for testing purposes
type Vote struct {
	DB databases.ComplaintDatabase
}

type voteRequest struct {
	Action string `json:"action"`
}

type voteResult struct {
	Votes     int    `json:"votes"`
	Downvotes int    `json:"downvotes"`
	UserVote  string `json:"userVote"`
}

// VoteHandler records or switches the caller's vote on a complaint. Each
// user holds at most one vote per complaint; repeating the same vote is a
// no-op, the opposite vote switches sides. Both mutations are single
// conditional updates so concurrent voters cannot corrupt the counters.
func (v Vote) VoteHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := api.IdentityFromContext(r.Context())

	oid, err := primitive.ObjectIDFromHex(mux.Vars(r)["complaint_id"])
	if err != nil {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Action != models.VoteUp && req.Action != models.VoteDown {
		config.ErrorStatus("action must be upvote or downvote", http.StatusBadRequest, w, nil)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	complaint, err := v.DB.FindOne(ctx, bson.M{"_id": oid})
	if err == mongo.ErrNoDocuments {
		config.ErrorStatus("complaint not found", http.StatusNotFound, w, err)
		return
	}
	if err != nil {
		config.ErrorStatus("failed to fetch complaint", http.StatusInternalServerError, w, err)
		return
	}

	counter := map[string]string{models.VoteUp: "votes", models.VoteDown: "downvotes"}

	existing := complaint.FindVoter(identity.ID)
	switch {
	case existing == nil:
		// first vote: guard against a concurrent first vote from the same user
		_, err = v.DB.UpdateOne(ctx,
			bson.M{"_id": oid, "voters.userId": bson.M{"$ne": identity.ID}},
			bson.M{
				"$push": bson.M{"voters": models.Voter{UserID: identity.ID, Type: req.Action}},
				"$inc":  bson.M{counter[req.Action]: 1},
			})
	case existing.Type == req.Action:
		// idempotent: same vote again changes nothing
		err = nil
	default:
		// switch sides in one document update via the positional operator
		_, err = v.DB.UpdateOne(ctx,
			bson.M{"_id": oid, "voters.userId": identity.ID, "voters.type": existing.Type},
			bson.M{
				"$set": bson.M{"voters.$.type": req.Action},
				"$inc": bson.M{counter[req.Action]: 1, counter[existing.Type]: -1},
			})
	}
	if err != nil {
		config.ErrorStatus("failed to record vote", http.StatusInternalServerError, w, err)
		return
	}

	updated, err := v.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("failed to fetch updated complaint", http.StatusInternalServerError, w, err)
		return
	}

	userVote := req.Action
	if voter := updated.FindVoter(identity.ID); voter != nil {
		userVote = voter.Type
	}

	b, err := json.Marshal(models.Response{Success: true, Message: "Vote recorded", Data: voteResult{
		Votes:     updated.Votes,
		Downvotes: updated.Downvotes,
		UserVote:  userVote,
	}})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

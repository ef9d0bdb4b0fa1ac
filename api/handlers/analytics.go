package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/config"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/models"
)

// Analytics exported for testing purposes
type Analytics struct {
	DB databases.ComplaintDatabase
}

var monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type monthlyBucket struct {
	ID struct {
		Year  int `bson:"year"`
		Month int `bson:"month"`
	} `bson:"_id"`
	Count int `bson:"count"`
}

type monthlyPoint struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Count int    `json:"count"`
}

// MonthlyReportsHandler returns report counts per month for the last six months
func (a Analytics) MonthlyReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	since := time.Now().AddDate(0, -6, 0)
	pipeline := []bson.M{
		{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id": bson.M{
				"year":  bson.M{"$year": "$createdAt"},
				"month": bson.M{"$month": "$createdAt"},
			},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id.year": 1, "_id.month": 1}},
	}

	cur, err := a.DB.Aggregate(ctx, pipeline)
	if err != nil {
		config.ErrorStatus("failed to aggregate monthly reports", http.StatusInternalServerError, w, err)
		return
	}
	var buckets []monthlyBucket
	if err := cur.Decode(&buckets); err != nil {
		config.ErrorStatus("failed to decode monthly reports", http.StatusInternalServerError, w, err)
		return
	}

	points := make([]monthlyPoint, 0, len(buckets))
	for _, bu := range buckets {
		name := ""
		if bu.ID.Month >= 1 && bu.ID.Month <= 12 {
			name = monthNames[bu.ID.Month-1]
		}
		points = append(points, monthlyPoint{Month: name, Year: bu.ID.Year, Count: bu.Count})
	}

	b, err := json.Marshal(models.Response{Success: true, Count: models.ListCount(len(points)), Data: points})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type categoryBucket struct {
	ID    string `bson:"_id" json:"category"`
	Count int    `bson:"count" json:"count"`
}

// ReportsByCategoryHandler returns report counts per category, largest first
func (a Analytics) ReportsByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
	}

	cur, err := a.DB.Aggregate(ctx, pipeline)
	if err != nil {
		config.ErrorStatus("failed to aggregate category reports", http.StatusInternalServerError, w, err)
		return
	}
	var buckets []categoryBucket
	if err := cur.Decode(&buckets); err != nil {
		config.ErrorStatus("failed to decode category reports", http.StatusInternalServerError, w, err)
		return
	}
	if buckets == nil {
		buckets = []categoryBucket{}
	}

	b, err := json.Marshal(models.Response{Success: true, Count: models.ListCount(len(buckets)), Data: buckets})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type statusBucket struct {
	ID    string `bson:"_id"`
	Count int    `bson:"count"`
}

type overallFacets struct {
	TotalReports []struct {
		Count int `bson:"count"`
	} `bson:"totalReports"`
	StatusCounts []statusBucket `bson:"statusCounts"`
}

type overallStats struct {
	TotalReports   int     `json:"totalReports"`
	Received       int     `json:"received"`
	InReview       int     `json:"inReview"`
	InProgress     int     `json:"inProgress"`
	Resolved       int     `json:"resolved"`
	Closed         int     `json:"closed"`
	ActiveReports  int     `json:"activeReports"`
	ResolutionRate float64 `json:"resolutionRate"`
}

// OverallStatsHandler returns totals, per-status counts and the resolution rate
func (a Analytics) OverallStatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	pipeline := []bson.M{
		{"$facet": bson.M{
			"totalReports": []bson.M{{"$count": "count"}},
			"statusCounts": []bson.M{
				{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
		}},
	}

	cur, err := a.DB.Aggregate(ctx, pipeline)
	if err != nil {
		config.ErrorStatus("failed to aggregate overall stats", http.StatusInternalServerError, w, err)
		return
	}
	var facets []overallFacets
	if err := cur.Decode(&facets); err != nil {
		config.ErrorStatus("failed to decode overall stats", http.StatusInternalServerError, w, err)
		return
	}

	stats := overallStats{}
	if len(facets) > 0 {
		f := facets[0]
		if len(f.TotalReports) > 0 {
			stats.TotalReports = f.TotalReports[0].Count
		}
		for _, s := range f.StatusCounts {
			switch s.ID {
			case models.StatusReceived:
				stats.Received = s.Count
			case models.StatusInReview:
				stats.InReview = s.Count
			case models.StatusInProgress:
				stats.InProgress = s.Count
			case models.StatusResolved:
				stats.Resolved = s.Count
			case models.StatusClosed:
				stats.Closed = s.Count
			}
		}
	}
	stats.ActiveReports = stats.Received + stats.InReview + stats.InProgress
	if stats.TotalReports > 0 {
		rate := float64(stats.Resolved) / float64(stats.TotalReports) * 100
		stats.ResolutionRate = math.Round(rate*100) / 100
	}

	b, err := json.Marshal(models.Response{Success: true, Data: stats})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

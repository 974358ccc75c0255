package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kaimin86/credit-rating-deploy/core"
	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

type overridesBody struct {
	Records []schema.OverrideRecord `json:"records"`
}

type overridesResponse struct {
	Country string `json:"country"`
	Year    int    `json:"year"`
	core.LoadResult
}

func (a *api) health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if _, err := a.provider.Engine(); err != nil {
		status = gin.H{"status": "degraded", "error": err.Error()}
	}
	c.JSON(http.StatusOK, status)
}

func (a *api) rating(c *gin.Context) {
	year, ok := yearQuery(c, a.baseCfg.Year)
	if !ok {
		return
	}
	whatIf := map[string]float64{}
	for _, raw := range c.QueryArray("what_if") {
		rec, err := core.ParseAssignment(raw)
		if err != nil {
			abort(c, http.StatusBadRequest, err)
			return
		}
		whatIf[rec.ShortKey] = rec.Adjustment
	}

	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	result, err := e.Simulate(c.Request.Context(), c.Param("country"), year, whatIf)
	if err != nil {
		fail(c, err)
		return
	}
	result.ConstituentTable = nil
	c.JSON(http.StatusOK, result)
}

func (a *api) constituents(c *gin.Context) {
	year, ok := yearQuery(c, a.baseCfg.Year)
	if !ok {
		return
	}
	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	result, err := e.Rate(c.Request.Context(), c.Param("country"), year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"country": result.Country, "year": result.Year, "rows": result.ConstituentTable})
}

func (a *api) ratingList(c *gin.Context) {
	year, ok := yearQuery(c, a.baseCfg.Year)
	if !ok {
		return
	}
	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	if year == 0 {
		latest, found := e.LatestYear()
		if !found {
			fail(c, schema.ErrNoData)
			return
		}
		year = latest
	}

	var store contract.CacheStore
	if a.mgr != nil {
		store = a.mgr.GetSnapshotStore()
	}
	entries, err := e.CachedRatingList(c.Request.Context(), year, store, a.baseCfg.CacheTTL)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "ratings": entries})
}

func (a *api) getOverrides(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	country := c.Param("country")
	res, err := e.Overrides(c.Request.Context(), country, year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overridesResponse{Country: country, Year: year, LoadResult: res})
}

func (a *api) putOverrides(c *gin.Context) {
	year, ok := yearParam(c)
	if !ok {
		return
	}
	var body overridesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	country := c.Param("country")
	saved, err := e.SaveOverrides(c.Request.Context(), country, year, body.Records)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, overridesResponse{
		Country:    country,
		Year:       year,
		LoadResult: core.LoadResult{Records: saved, Status: schema.OverridesLoaded},
	})
}

func (a *api) provision(c *gin.Context) {
	if a.mgr == nil || a.mgr.GetLedger() == nil {
		abort(c, http.StatusServiceUnavailable, fmt.Errorf("no override ledger configured"))
		return
	}
	country := c.Param("country")
	created, err := a.mgr.GetLedger().Provision(c.Request.Context(), country)
	if err != nil {
		fail(c, &schema.TransportError{Op: "provision", Country: country, Err: err})
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"country": country, "created": created})
}

func (a *api) peers(c *gin.Context) {
	year, ok := yearQuery(c, a.baseCfg.Year)
	if !ok {
		return
	}
	bucket := c.Param("bucket")
	if _, err := core.FindBucket(bucket); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	if year == 0 {
		latest, found := e.LatestYear()
		if !found {
			fail(c, schema.ErrNoData)
			return
		}
		year = latest
	}
	peers, err := e.Peers(c.Request.Context(), year, bucket)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "bucket": bucket, "peers": peers})
}

func (a *api) history(c *gin.Context) {
	e, err := a.provider.Engine()
	if err != nil {
		fail(c, err)
		return
	}
	country := c.Param("country")
	points, err := e.History(c.Request.Context(), country)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"country": country, "history": points})
}

func (a *api) reload(c *gin.Context) {
	if err := a.provider.Reload(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

// yearQuery reads the optional ?year= parameter. It writes a 400 and returns false when
// the value is not a non-negative integer.
func yearQuery(c *gin.Context, def int) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return def, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		abort(c, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
		return 0, false
	}
	return year, true
}

// yearParam reads the :year path segment, which must be a positive year.
func yearParam(c *gin.Context) (int, bool) {
	raw := c.Param("year")
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		abort(c, http.StatusBadRequest, fmt.Errorf("invalid year %q", raw))
		return 0, false
	}
	return year, true
}

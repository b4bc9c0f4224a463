package payroll

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"attendance-bot/project/domain"
	"attendance-bot/project/dto"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

// staticTokenSource は固定トークンを返すテスト用 TokenSource です
var staticTokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})

// newTestClient はリトライ待機を実時間なしで記録するクライアントを作ります
func newTestClient(baseURL string) (*Client, *[]time.Duration) {
	c := NewClient(baseURL, 1, staticTokenSource)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func validPunch() dto.TimeClockRequest {
	return dto.TimeClockRequest{
		CompanyID: 1,
		Type:      dto.TimeClockTypeClockIn,
		BaseDate:  "2023-03-06",
		Datetime:  "2023-03-06 09:00:00",
	}
}

func TestClient_RegisterTimeClock_RetryExhausted(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, slept := newTestClient(srv.URL)
	_, err := c.RegisterTimeClock(context.Background(), 10, validPunch())

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.Equal(t, 3, attempts)
	// 待機は 1回目: 1+1=2秒, 2回目: 1+2=3秒
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second}, *slept)
}

func TestClient_RegisterTimeClock_RetryThenSuccess(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"employee_time_clock":{"id":77,"type":"clock_in","datetime":"2023-03-06T09:00:00+09:00"}}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	got, err := c.RegisterTimeClock(context.Background(), 10, validPunch())

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int64(77), got.ID)
}

func TestClient_RegisterTimeClock_PermanentFailureNoRetry(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"base_date is invalid"}`)
	}))
	defer srv.Close()

	c, slept := newTestClient(srv.URL)
	_, err := c.RegisterTimeClock(context.Background(), 10, validPunch())

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *slept)

	// 診断用にレスポンスボディが保持される
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "base_date is invalid")
}

func TestClient_RegisterTimeClock_ValidationRejectsBeforeCall(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	req := validPunch()
	req.Datetime = "09:00"
	_, err := c.RegisterTimeClock(context.Background(), 10, req)
	assert.Error(t, err)
	assert.False(t, called, "検証失敗時はAPIを呼ばない")
}

func TestClient_GetWorkRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/employees/10/work_records/2023-03-06", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("company_id"))
		fmt.Fprint(w, `{
			"date": "2023-03-06",
			"clock_in_at": "2023-03-06T09:00:00+09:00",
			"clock_out_at": "2023-03-06T18:00:00+09:00",
			"note": "",
			"break_records": [{"clock_in_at":"2023-03-06T12:00:00+09:00","clock_out_at":"2023-03-06T13:00:00+09:00"}]
		}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	got, err := c.GetWorkRecord(context.Background(), 10, "2023-03-06")

	assert.NoError(t, err)
	assert.Equal(t, "2023-03-06", got.Date)
	assert.Len(t, got.BreakRecords, 1)
}

func TestClient_FindEmployeeByEmail_Paginates(t *testing.T) {
	var pages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)

		if page == "1" {
			// 1ページ目は満杯（次ページあり）
			fmt.Fprint(w, `{"employees":[`)
			for i := 0; i < 100; i++ {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"id":%d,"display_name":"従業員%d","email":"emp%d@example.com"}`, i+1, i+1, i+1)
			}
			fmt.Fprint(w, `]}`)
			return
		}
		fmt.Fprint(w, `{"employees":[{"id":200,"display_name":"山田","email":"yamada@example.com"}]}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	got, err := c.FindEmployeeByEmail(context.Background(), "yamada@example.com")

	assert.NoError(t, err)
	assert.Equal(t, int64(200), got.ID)
	assert.Equal(t, []string{"1", "2"}, pages)
}

func TestClient_FindEmployeeByEmail_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"employees":[{"id":1,"display_name":"佐藤","email":"sato@example.com"}]}`)
	}))
	defer srv.Close()

	c, _ := newTestClient(srv.URL)
	_, err := c.FindEmployeeByEmail(context.Background(), "unknown@example.com")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIdentity))
}

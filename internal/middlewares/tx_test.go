package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxMiddleware(t *testing.T) {
	newDB := func(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return sqlx.NewDb(db, "sqlmock"), mock
	}

	t.Run("commits on success", func(t *testing.T) {
		sqlxDB, mock := newDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		handler := TxMiddleware(sqlxDB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotNil(t, GetTxFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error response", func(t *testing.T) {
		sqlxDB, mock := newDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		handler := TxMiddleware(sqlxDB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure suppresses the success response", func(t *testing.T) {
		sqlxDB, mock := newDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection lost"))

		handler := TxMiddleware(sqlxDB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"message":"saved"}`))
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Empty(t, rr.Body.String(), "the buffered success body must not reach the client")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delivers the handler body after commit", func(t *testing.T) {
		sqlxDB, mock := newDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		handler := TxMiddleware(sqlxDB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":"saved"}`))
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"saved"}`, rr.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		sqlxDB, mock := newDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		handler := TxMiddleware(sqlxDB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		assert.Panics(t, func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure yields 500", func(t *testing.T) {
		sqlxDB, mock := newDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("db down"))

		called := false
		handler := TxMiddleware(sqlxDB)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.False(t, called)
	})

	t.Run("no transaction in bare context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Nil(t, GetTxFromContext(req.Context()))
	})
}

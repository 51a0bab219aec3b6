package uploadhandlers

import (
	"fmt"
	"net/http"

	"github.com/The127/ioc"
	"github.com/The127/mediatr"
	"github.com/gorilla/mux"

	"github.com/bmakarand2009/studiomedia/internal/commands"
	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/queries"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
)

type ListUploadsResponse struct {
	Items []sessions.Session `json:"items"`
}

func ListUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*queries.ListUploadsResponse](ctx, mediator, queries.ListUploads{})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, ListUploadsResponse{
		Items: result.Items,
	})
}

type ClearFinishedUploadsResponse struct {
	Removed int `json:"removed"`
}

func ClearFinishedUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*commands.ClearFinishedUploadsResponse](ctx, mediator, commands.ClearFinishedUploads{})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, ClearFinishedUploadsResponse{
		Removed: result.Removed,
	})
}

func DeleteAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetId := vars["assetId"]
	if assetId == "" {
		apiError.HandleHttpError(w, fmt.Errorf("missing asset id: %w", apiError.ErrApiBadRequest))
		return
	}

	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	_, err := mediatr.Send[*commands.DeleteAssetResponse](ctx, mediator, commands.DeleteAsset{
		AssetId: assetId,
	})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ListJournalResponse struct {
	Items []journal.Entry `json:"items"`
}

func ListJournal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*queries.ListJournalResponse](ctx, mediator, queries.ListJournal{})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, ListJournalResponse{
		Items: result.Items,
	})
}

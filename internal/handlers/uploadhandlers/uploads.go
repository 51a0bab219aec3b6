package uploadhandlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/The127/ioc"
	"github.com/The127/mediatr"

	"github.com/bmakarand2009/studiomedia/internal/commands"
	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
	"github.com/bmakarand2009/studiomedia/internal/transport"
	"github.com/bmakarand2009/studiomedia/internal/utils"
	"github.com/bmakarand2009/studiomedia/internal/utils/apiError"
	"github.com/bmakarand2009/studiomedia/internal/utils/decoding"
	"github.com/bmakarand2009/studiomedia/internal/utils/pointer"
	"github.com/bmakarand2009/studiomedia/internal/utils/validate"
)

type UploadResultResponse struct {
	Session       sessions.Session `json:"session"`
	AssetId       string           `json:"assetId,omitempty"`
	CdnObject     *media.CdnObject `json:"cdnObject,omitempty"`
	RefreshAssets bool             `json:"refreshAssets"`
}

func UploadVideo(w http.ResponseWriter, r *http.Request) {
	file, closeFile, err := fileFromRequest(r)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}
	defer closeFile()

	descriptor, err := descriptorFromForm(r, media.KindVideo, file.Name)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*commands.UploadVideoResponse](ctx, mediator, commands.UploadVideo{
		File:       file,
		Descriptor: descriptor,
	})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, UploadResultResponse{
		Session:       result.Session,
		AssetId:       result.AssetId,
		RefreshAssets: result.RefreshAssets,
	})
}

func UploadFile(w http.ResponseWriter, r *http.Request) {
	file, closeFile, err := fileFromRequest(r)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}
	defer closeFile()

	descriptor, err := descriptorFromForm(r, media.KindFile, file.Name)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*commands.UploadFileResponse](ctx, mediator, commands.UploadFile{
		File:       file,
		Descriptor: descriptor,
	})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, UploadResultResponse{
		Session:       result.Session,
		AssetId:       result.AssetId,
		RefreshAssets: result.RefreshAssets,
	})
}

func UploadImage(w http.ResponseWriter, r *http.Request) {
	file, closeFile, err := fileFromRequest(r)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}
	defer closeFile()

	descriptor, err := descriptorFromForm(r, media.KindImage, file.Name)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	// images default to managed assets, unmanaged uploads only live on
	// the cdn and return the object reference to the caller
	managed := true
	if raw := r.FormValue("managed"); raw != "" {
		managed, err = strconv.ParseBool(raw)
		if err != nil {
			apiError.HandleHttpError(w, fmt.Errorf("invalid managed value: %w", apiError.ErrApiBadRequest))
			return
		}
	}

	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*commands.UploadImageResponse](ctx, mediator, commands.UploadImage{
		File:       file,
		Descriptor: descriptor,
		Managed:    managed,
	})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, UploadResultResponse{
		Session:       result.Session,
		AssetId:       result.AssetId,
		CdnObject:     result.CdnObject,
		RefreshAssets: result.RefreshAssets,
	})
}

type UploadLinkRequest struct {
	Title        string `json:"title" validate:"required"`
	Link         string `json:"link" validate:"required,url"`
	ProductId    string `json:"productId"`
	ModuleId     string `json:"moduleId"`
	Downloadable bool   `json:"downloadable"`
}

func UploadLink(w http.ResponseWriter, r *http.Request) {
	var dto UploadLinkRequest
	err := decoding.HttpBodyAsJson(w, r, &dto)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	err = validate.Validate(dto)
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	productId := dto.ProductId
	if productId == "" {
		productId = config.C.Backend.ProductId
	}

	ctx := r.Context()
	scope := middlewares.GetScope(ctx)
	mediator := ioc.GetDependency[mediatr.Mediator](scope)

	result, err := mediatr.Send[*commands.UploadLinkResponse](ctx, mediator, commands.UploadLink{
		Descriptor: media.TransferDescriptor{
			Kind:         media.KindLink,
			Filename:     dto.Title,
			ProductId:    productId,
			ModuleId:     dto.ModuleId,
			Link:         pointer.To(dto.Link),
			Downloadable: dto.Downloadable,
		},
	})
	if err != nil {
		apiError.HandleHttpError(w, err)
		return
	}

	writeJson(w, UploadResultResponse{
		Session:       result.Session,
		AssetId:       result.AssetId,
		RefreshAssets: result.RefreshAssets,
	})
}

func fileFromRequest(r *http.Request) (transport.File, func(), error) {
	content, header, err := r.FormFile("file")
	if err != nil {
		return transport.File{}, nil, fmt.Errorf("missing file part: %w", apiError.ErrApiBadRequest)
	}

	// browsers send the file modification time as unix milliseconds, it
	// keeps the resume fingerprint stable across retries of the same file
	modTime := time.Now()
	if raw := r.FormValue("lastModified"); raw != "" {
		millis, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr == nil {
			modTime = time.UnixMilli(millis)
		}
	}

	file := transport.File{
		Name:    header.Filename,
		Size:    header.Size,
		ModTime: modTime,
		Content: content,
	}

	return file, func() { utils.IgnoreError(content.Close) }, nil
}

func descriptorFromForm(r *http.Request, kind media.Kind, filename string) (media.TransferDescriptor, error) {
	productId := r.FormValue("productId")
	if productId == "" {
		productId = config.C.Backend.ProductId
	}

	downloadable := false
	if raw := r.FormValue("downloadable"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return media.TransferDescriptor{}, fmt.Errorf("invalid downloadable value: %w", apiError.ErrApiBadRequest)
		}
		downloadable = parsed
	}

	descriptor := media.TransferDescriptor{
		Kind:         kind,
		Filename:     filename,
		ProductId:    productId,
		ModuleId:     r.FormValue("moduleId"),
		Downloadable: downloadable,
	}

	err := validate.Validate(descriptor)
	if err != nil {
		return media.TransferDescriptor{}, err
	}

	return descriptor, nil
}

func writeJson(w http.ResponseWriter, response any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		apiError.HandleHttpError(w, err)
	}
}

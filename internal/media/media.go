package media

type Kind string

const (
	KindVideo Kind = "video"
	KindFile  Kind = "file"
	KindImage Kind = "image"
	KindLink  Kind = "link"
)

// TransferDescriptor is the caller-supplied metadata for a single upload.
// It is immutable for the lifetime of the session it creates: the same
// values are sent with the negotiation request and attached to the asset
// record during registration.
type TransferDescriptor struct {
	Kind         Kind    `json:"kind" validate:"required,oneof=video file image link"`
	Filename     string  `json:"filename" validate:"required"`
	ProductId    string  `json:"productId" validate:"required"`
	ModuleId     string  `json:"moduleId"`
	Link         *string `json:"link,omitempty"`
	Downloadable bool    `json:"downloadable"`
}

// CdnObject is the reference returned by the third-party CDN after a
// multipart image upload.
type CdnObject struct {
	ObjectReference string `json:"objectReference"`
	SecureUrl       string `json:"secureUrl"`
	Folder          string `json:"folder"`
}

// RemoteObject identifies transferred bytes on the video ingestion side,
// as issued during credential negotiation.
type RemoteObject struct {
	RemoteObjectId string `json:"remoteObjectId"`
	ContainerId    string `json:"containerId"`
}

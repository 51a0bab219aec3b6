package setup

import (
	"github.com/The127/ioc"
	"github.com/The127/mediatr"

	"github.com/bmakarand2009/studiomedia/internal/commands"
	"github.com/bmakarand2009/studiomedia/internal/queries"
)

func Mediator(dc *ioc.DependencyCollection) {
	mediator := mediatr.NewMediator()

	mediatr.RegisterHandler(mediator, commands.HandleUploadVideo)
	mediatr.RegisterHandler(mediator, commands.HandleUploadFile)
	mediatr.RegisterHandler(mediator, commands.HandleUploadImage)
	mediatr.RegisterHandler(mediator, commands.HandleUploadLink)

	mediatr.RegisterHandler(mediator, commands.HandleDeleteAsset)
	mediatr.RegisterHandler(mediator, commands.HandleClearFinishedUploads)

	mediatr.RegisterHandler(mediator, queries.HandleListUploads)
	mediatr.RegisterHandler(mediator, queries.HandleListJournal)

	ioc.RegisterSingleton(dc, func(_ *ioc.DependencyProvider) mediatr.Mediator {
		return mediator
	})
}

package app

import (
	"time"

	"pacrepack/internal/adapters"
	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

type Service struct {
	DB             ports.PackageDB
	CopierFactory  func(types.SudoMode) (ports.FileCopier, error)
	Archiver       ports.Archiver
	Reader         ports.ArchiveReader
	Overrides      ports.OverridesLoader
	Confirm        ports.Confirmer
	StagingFactory func(workRoot string) ports.StagingStore
	Clock          func() time.Time
}

func NewService() Service {
	return Service{
		DB:            adapters.NewPacmanAdapter(),
		CopierFactory: adapters.NewCopierFor,
		Archiver:      adapters.NewTarZstdArchiver(),
		Reader:        adapters.NewTarZstdReader(),
		Overrides:     adapters.NewOverridesFileAdapter(),
		Confirm:       adapters.NewStdinConfirmer(),
		StagingFactory: func(workRoot string) ports.StagingStore {
			return adapters.NewStagingDirAdapter(workRoot)
		},
		Clock: time.Now,
	}
}

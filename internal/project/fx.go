package project

import (
	"github.com/smallbiznis/rewild/internal/project/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("project",
	fx.Provide(repository.Provide),
)

package config

import "github.com/spf13/afero"

// FsFactory returns the filesystem config files are read from and written to.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

package consts

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
)

const (
	StoreDriverPebble   = "pebble"
	StoreDriverPostgres = "postgres"
)

func init() {
	home, _ := homedir.Dir()
	BaseDir = fmt.Sprintf("%s/eggie_web", home)
	DefaultConfigPath = fmt.Sprintf("%s/config", BaseDir)
}

var (
	BaseDir           string
	DefaultConfigPath string
)

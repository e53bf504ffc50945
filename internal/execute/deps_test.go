package execute

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackagesMapsImportsToPipNames(t *testing.T) {
	t.Parallel()

	script := "import pandas as pd\nfrom bs4 import BeautifulSoup\nimport docx\nimport os\nimport my_local_helper\n"
	assert.Equal(t, []string{"beautifulsoup4", "pandas", "python-docx"}, Packages(script))
}

func TestPackagesEmptyForStdlibOnly(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Packages("import os\nimport json\nfrom pathlib import Path\n"))
}

func TestInstallRunsPipForMissingPackages(t *testing.T) {
	t.Parallel()

	var gotName string
	var gotArgs []string
	in := &Installer{
		Python: "python3",
		run: func(_ context.Context, name string, args ...string) error {
			gotName = name
			gotArgs = args
			return nil
		},
	}

	in.Install(context.Background(), "import pdfplumber\n")

	assert.Equal(t, "python3", gotName)
	require.GreaterOrEqual(t, len(gotArgs), 5)
	assert.Equal(t, []string{"-m", "pip", "install", "--quiet", "pdfplumber"}, gotArgs)
}

func TestInstallSkipsWhenNothingNeeded(t *testing.T) {
	t.Parallel()

	called := false
	in := &Installer{run: func(context.Context, string, ...string) error {
		called = true
		return nil
	}}
	in.Install(context.Background(), "import os\n")
	assert.False(t, called)
}

func TestInstallFailureIsLoggedNotFatal(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	in := &Installer{
		Logger: log.New(&buf, "", 0),
		run: func(context.Context, string, ...string) error {
			return errors.New("no network")
		},
	}

	in.Install(context.Background(), "import requests\n")
	assert.Contains(t, buf.String(), "dependency install failed")
	assert.Contains(t, buf.String(), "no network")
}

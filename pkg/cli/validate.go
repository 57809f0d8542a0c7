package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apimimic/mimicd/pkg/config"
	"github.com/apimimic/mimicd/pkg/engine"
)

var validateFlags struct {
	apiPath       string
	authPath      string
	endpointsPath string
}

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a configuration without serving",
	Long: `Load and fully compile a configuration, then exit. Reports every
structural problem found plus the first compile error (bad path pattern,
condition syntax, or template filter), exactly as serve would at startup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var doc *config.Document
		var err error
		if len(args) == 1 {
			doc, err = config.Load(args[0])
		} else if validateFlags.endpointsPath != "" {
			doc, err = config.LoadFiles(validateFlags.apiPath, validateFlags.authPath, validateFlags.endpointsPath)
		} else {
			return fmt.Errorf("a config file argument or --endpoints is required")
		}
		if err != nil {
			return err
		}
		if _, err := engine.BuildSnapshot(doc); err != nil {
			return err
		}

		cmd.Printf("configuration valid: %d endpoints, %d auth methods\n",
			len(doc.Endpoints), len(doc.AuthMethods))
		return nil
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.apiPath, "api", "", "API metadata document")
	f.StringVar(&validateFlags.authPath, "auth", "", "auth-method declarations document")
	f.StringVar(&validateFlags.endpointsPath, "endpoints", "", "endpoint list document")
}

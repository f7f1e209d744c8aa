package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/careboard-ai/careboard/blobstore"
	"github.com/careboard-ai/careboard/config"
)

func newDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage, and model credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass := color.New(color.FgGreen).SprintFunc()
			fail := color.New(color.FgRed).SprintFunc()
			warn := color.New(color.FgYellow).SprintFunc()

			failures := 0
			check := func(name string, err error) {
				if err != nil {
					failures++
					fmt.Printf("%s %s: %v\n", fail("✗"), name, err)
					return
				}
				fmt.Printf("%s %s\n", pass("✓"), name)
			}

			settings, err := config.SettingsFromEnv()
			check("settings", err)
			if err != nil {
				return fmt.Errorf("%d check(s) failed", failures)
			}

			_, err = config.ParseFile(settings.AgentsConfigPath)
			check(fmt.Sprintf("agents config (%s)", settings.AgentsConfigPath), err)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			store := blobstore.New(settings.StorageURL)
			probe := fmt.Sprintf("doctor/probe_%d.json", time.Now().UnixNano())
			err = store.Put(ctx, probe, []byte(`{"probe":true}`))
			if err == nil {
				err = store.Delete(ctx, probe)
			}
			check(fmt.Sprintf("storage (%s)", settings.StorageURL), err)

			if os.Getenv("OPENAI_API_KEY") == "" {
				fmt.Printf("%s OPENAI_API_KEY is not set\n", warn("!"))
			} else {
				fmt.Printf("%s OPENAI_API_KEY\n", pass("✓"))
			}

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			return nil
		},
	}
}

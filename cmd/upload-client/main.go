// Command upload-client submits an image to the deepfake upload API and
// prints one verdict per detected face.
//
//	upload-client --server-addr=http://127.0.0.1:8080 photo.jpg
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/echefulouis/DeepFake/api/clients"
	"github.com/echefulouis/DeepFake/cmd/flags"
	"github.com/urfave/cli/v2"
)

var clientFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "server-addr",
		Value:   "http://127.0.0.1:8080",
		Usage:   "base URL of the upload API",
		EnvVars: []string{"DEEPFAKE_SERVER_ADDR"},
	},
	&cli.DurationFlag{
		Name:  "timeout",
		Value: 90 * time.Second,
		Usage: "request timeout",
	},
	flags.LogJsonFlag,
	flags.LogDebugFlag,
	flags.LogServiceFlagFn("deepfake-upload-client"),
}

func main() {
	app := &cli.App{
		Name:      "upload-client",
		Usage:     "Check an image for deepfaked faces",
		ArgsUsage: "<image-file>",
		Flags:     clientFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			if cCtx.NArg() != 1 {
				return errors.New("exactly one image file is required")
			}
			path := cCtx.Args().First()

			image, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("could not read image: %w", err)
			}

			client := clients.NewUploadClient(cCtx.String("server-addr"), cCtx.Duration("timeout"))
			logger.Debug("Uploading image", "file", path, "size", len(image))

			resp, err := client.Upload(context.Background(), image)
			if err != nil {
				logger.Error("Upload failed", "err", err)
				return err
			}

			verdicts, err := clients.Verdicts(resp)
			if err != nil {
				return err
			}
			if len(verdicts) == 0 {
				fmt.Println("No faces detected")
				return nil
			}

			for i, v := range verdicts {
				fmt.Printf("Face %d: %s (%.1f%% confidence)\n", i+1, v.Label(), v.Confidence*100)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

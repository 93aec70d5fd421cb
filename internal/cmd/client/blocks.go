package clientcmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/zzcclp/blaze/internal/blockstore"
)

// NewBlocksCommand builds the `blocks` command group used to seed a worker
// with shuffle data during development.
func NewBlocksCommand() *cobra.Command {
	blocksCmd := &cobra.Command{Use: "blocks", Short: "Shuffle block operations"}

	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Upload one mapper's block for a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			worker, _ := cmd.Flags().GetString("worker")
			shuffleID, _ := cmd.Flags().GetInt("shuffle-id")
			file, _ := cmd.Flags().GetString("file")
			partition, _ := cmd.Flags().GetInt("partition")
			mapIndex, _ := cmd.Flags().GetInt("map-index")
			dataPath, _ := cmd.Flags().GetString("data")

			payload, err := os.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("read block data: %w", err)
			}
			body, _ := json.Marshal(map[string]interface{}{
				"shuffleId": shuffleID,
				"fileName":  file,
				"partition": partition,
				"mapIndex":  mapIndex,
				"payload":   payload,
			})
			return post(worker+"/v1/shuffle/blocks", body)
		},
	}
	putCmd.Flags().String("worker", "http://127.0.0.1:7337", "Worker base URL")
	putCmd.Flags().Int("shuffle-id", 0, "Shuffle id")
	putCmd.Flags().String("file", "", "Shuffle file name")
	putCmd.Flags().Int("partition", 0, "Partition id")
	putCmd.Flags().Int("map-index", 0, "Mapper index")
	putCmd.Flags().String("data", "", "Path to the block payload")
	_ = putCmd.MarkFlagRequired("file")
	_ = putCmd.MarkFlagRequired("data")
	blocksCmd.AddCommand(putCmd)

	metaCmd := &cobra.Command{
		Use:   "meta",
		Short: "Register shuffle metadata on a worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			worker, _ := cmd.Flags().GetString("worker")
			shuffleID, _ := cmd.Flags().GetInt("shuffle-id")
			mapperCount, _ := cmd.Flags().GetInt("mapper-count")

			body, _ := json.Marshal(map[string]interface{}{
				"shuffleId": shuffleID,
				"meta":      blockstore.Meta{MapperCount: mapperCount},
			})
			return post(worker+"/v1/shuffle/meta", body)
		},
	}
	metaCmd.Flags().String("worker", "http://127.0.0.1:7337", "Worker base URL")
	metaCmd.Flags().Int("shuffle-id", 0, "Shuffle id")
	metaCmd.Flags().Int("mapper-count", 0, "Number of upstream mappers")
	blocksCmd.AddCommand(metaCmd)

	return blocksCmd
}

func post(url string, body []byte) error {
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}

package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meysamhadeli/codai-scope/constants/lipgloss"
)

// InputPromptWithContext asks for a query on reader and gives up when ctx is cancelled.
func InputPromptWithContext(ctx context.Context, reader *bufio.Reader) (string, error) {
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		fmt.Print(lipgloss.BlueSky.Render("query> "))

		userInput, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			errChan <- fmt.Errorf("error reading input: %w", err)
			return
		}
		inputChan <- strings.TrimSpace(userInput)
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case input := <-inputChan:
		return input, nil
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ociswap/registry/internal/middleware"
	"github.com/ociswap/registry/internal/signer"
	"github.com/spf13/cobra"
)

const envOwnerKey = "FEEREG_OWNER_KEY"

var (
	signKey      string
	signMethod   string
	signBody     string
	signBodyFile string
	signTime     int64
	signCurl     string
)

var signCmd = &cobra.Command{
	Use:   "sign [path]",
	Short: "Print owner headers for a request to path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		s, err := loadSigner(signKey)
		if err != nil {
			return err
		}
		body, err := readBody(signBody, signBodyFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		ts := signTime
		if ts == 0 {
			ts = time.Now().Unix()
		}

		headers, err := ownerHeaders(s, signMethod, args[0], ts, body)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if signCurl != "" {
			fmt.Fprintln(out, curlCommand(signCurl, strings.ToUpper(signMethod), args[0], headers, body))
			return nil
		}
		for _, h := range headerOrder {
			fmt.Fprintf(out, "%s: %s\n", h, headers[h])
		}
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the owner address of the signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		s, err := loadSigner(signKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.Address().Hex())
		return nil
	},
}

var headerOrder = []string{middleware.HeaderOwnerTimestamp, middleware.HeaderOwnerSignature}

func init() {
	rootCmd.PersistentFlags().StringVar(&signKey, "key", "", "hex private key (defaults to $"+envOwnerKey+")")

	signCmd.Flags().StringVarP(&signMethod, "method", "X", "PUT", "HTTP method")
	signCmd.Flags().StringVarP(&signBody, "data", "d", "", "request body; '-' reads stdin")
	signCmd.Flags().StringVar(&signBodyFile, "data-file", "", "read the request body from a file")
	signCmd.Flags().Int64Var(&signTime, "timestamp", 0, "unix seconds to sign (defaults to now)")
	signCmd.Flags().StringVar(&signCurl, "curl", "", "print a curl command against this base URL instead of headers")

	rootCmd.AddCommand(signCmd, addressCmd)
}

func loadSigner(key string) (*signer.Signer, error) {
	if key == "" {
		key = os.Getenv(envOwnerKey)
	}
	if key == "" {
		return nil, fmt.Errorf("no signing key: pass --key or set %s", envOwnerKey)
	}
	return signer.NewSigner(key)
}

func readBody(inline, file string, stdin io.Reader) ([]byte, error) {
	switch {
	case inline != "" && file != "":
		return nil, fmt.Errorf("--data and --data-file are mutually exclusive")
	case file != "":
		return os.ReadFile(file)
	case inline == "-":
		return io.ReadAll(stdin)
	default:
		return []byte(inline), nil
	}
}

func ownerHeaders(s *signer.Signer, method, path string, ts int64, body []byte) (map[string]string, error) {
	sig, err := s.SignRequest(strings.ToUpper(method), path, ts, body)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		middleware.HeaderOwnerTimestamp: strconv.FormatInt(ts, 10),
		middleware.HeaderOwnerSignature: sig,
	}, nil
}

func curlCommand(baseURL, method, path string, headers map[string]string, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s %s%s", method, strings.TrimRight(baseURL, "/"), path)
	for _, h := range headerOrder {
		fmt.Fprintf(&b, " -H '%s: %s'", h, headers[h])
	}
	if len(body) > 0 {
		b.WriteString(" -H 'Content-Type: application/json'")
		fmt.Fprintf(&b, " --data-raw '%s'", strings.ReplaceAll(string(body), "'", `'\''`))
	}
	return b.String()
}

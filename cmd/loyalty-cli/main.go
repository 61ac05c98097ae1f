package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"loyaltychain/crypto"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via LOYALTY_RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv("LOYALTY_RPC_TOKEN")

func main() {
	args := os.Args[1:]
	var err error
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		generateKey()
	case "owner":
		call("loyalty_getOwner", nil)
	case "points":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		call("loyalty_getPoints", map[string]string{"account": args[1]})
	case "authorized":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		call("loyalty_getAuthorizedCaller", map[string]string{"account": args[1]})
	case "credit":
		if len(args) < 4 {
			fmt.Println("Error: Please provide a caller, an account and an amount.")
			printUsage()
			return
		}
		call("loyalty_updatePoints", map[string]string{"caller": args[1], "account": args[2], "points": args[3]})
	case "mint":
		if len(args) < 3 {
			fmt.Println("Error: Please provide a caller and an account.")
			printUsage()
			return
		}
		call("loyalty_mint", map[string]string{"caller": args[1], "account": args[2]})
	case "reward":
		if len(args) < 3 {
			fmt.Println("Error: Please provide a caller and an account.")
			printUsage()
			return
		}
		call("loyalty_rewardAction", map[string]string{"caller": args[1], "account": args[2]})
	case "authorize":
		if len(args) < 4 {
			fmt.Println("Error: Please provide a caller, an account and true/false.")
			printUsage()
			return
		}
		status := strings.EqualFold(args[3], "true")
		call("loyalty_setAuthorizedCaller", map[string]interface{}{"caller": args[1], "account": args[2], "status": status})
	case "token-owner":
		if len(args) < 2 {
			fmt.Println("Error: Please provide a token id.")
			printUsage()
			return
		}
		call("nft_ownerOf", map[string]string{"tokenId": args[1]})
	case "tokens":
		if len(args) < 2 {
			fmt.Println("Error: Please provide an address.")
			printUsage()
			return
		}
		call("nft_listTokens", map[string]string{"account": args[1]})
	case "metadata":
		call("nft_metadata", nil)
	case "events":
		call("loyalty_listEvents", nil)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
	}
}

func defaultRPCEndpoint() string {
	if url := strings.TrimSpace(os.Getenv("LOYALTY_RPC_URL")); url != "" {
		return url
	}
	return "http://127.0.0.1:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--rpc":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--rpc requires a URL argument")
			}
			i++
			rpcEndpoint = args[i]
		case strings.HasPrefix(args[i], "--rpc="):
			rpcEndpoint = strings.TrimPrefix(args[i], "--rpc=")
		default:
			out = append(out, args[i])
		}
	}
	return out, nil
}

func generateKey() {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Address: %s\n", key.PubKey().Address().String())
	fmt.Printf("PrivateKey: %x\n", key.Bytes())
}

func call(method string, params interface{}) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding request: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if rpcAuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calling %s: %v\n", method, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
		os.Exit(1)
	}
	if decoded.Error != nil {
		fmt.Fprintf(os.Stderr, "RPC error %d: %s\n", decoded.Error.Code, decoded.Error.Message)
		os.Exit(1)
	}
	pretty := &bytes.Buffer{}
	if err := json.Indent(pretty, decoded.Result, "", "  "); err != nil {
		fmt.Println(string(decoded.Result))
		return
	}
	fmt.Println(pretty.String())
}

func printUsage() {
	fmt.Println("Usage: loyalty-cli [--rpc URL] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  generate-key                          Generate a new account key")
	fmt.Println("  owner                                 Show the registry owner")
	fmt.Println("  points <address>                      Show an account's loyalty balance")
	fmt.Println("  authorized <address>                  Show whether an account may credit points")
	fmt.Println("  credit <caller> <account> <amount>    Credit loyalty points")
	fmt.Println("  mint <caller> <account>               Mint a membership token")
	fmt.Println("  reward <caller> <account>             Evaluate the reward tier")
	fmt.Println("  authorize <caller> <account> <bool>   Grant or revoke credit permission")
	fmt.Println("  token-owner <tokenId>                 Show the owner of a token")
	fmt.Println("  tokens <address>                      List tokens held by an account")
	fmt.Println("  metadata                              Show collection name and symbol")
	fmt.Println("  events                                List emitted notifications")
}

// addrsync-cli manages wallet accounts against a DAG ledger: address
// discovery, sync, remainder and input selection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-addrsync/config"
	"github.com/Klingon-tech/klingnet-addrsync/internal/account"
	"github.com/Klingon-tech/klingnet-addrsync/internal/addresses"
	"github.com/Klingon-tech/klingnet-addrsync/internal/ledger"
	"github.com/Klingon-tech/klingnet-addrsync/internal/log"
	"github.com/Klingon-tech/klingnet-addrsync/internal/storage"
	"github.com/Klingon-tech/klingnet-addrsync/internal/wallet"
	"github.com/Klingon-tech/klingnet-addrsync/pkg/types"
)

const version = "0.1.0"

// app bundles what the commands need. Opened lazily so that wallet commands
// don't lock the account database.
type app struct {
	cfg *config.Config
	ks  *wallet.Keystore
	db  *storage.BadgerDB
	mgr *account.Manager
}

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
	if flags.Help {
		usage()
		return
	}
	if flags.Version {
		fmt.Printf("addrsync-cli version %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	a := &app{cfg: cfg, ks: ks}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "wallet":
		a.cmdWallet(cmdArgs)
	case "account":
		a.cmdAccount(ctx, cmdArgs)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: addrsync-cli [global flags] <command> [flags]

Global flags:
  --network <net>     mainnet (default) or testnet
  --testnet           Shorthand for --network=testnet
  --datadir <path>    Data directory (default: ~/.addrsync)
  --config, -c <path> Config file (default: <datadir>/addrsync.conf)
  --nodes <urls>      Ledger node RPC endpoints (comma-separated)
  --timeout <dur>     Ledger request timeout (default: 30s)
  --retries <n>       Extra attempts after a failed request (default: 3)
  --security <1-3>    Security level for new accounts (default: 2)
  --batch <n>         Addresses per discovery step (default: 10)
  --log-level <lvl>   debug, info, warn, error, disabled (default: info)
  --log-file <path>   Also write JSON logs to a file
  --log-json          Output logs as JSON
  --version, -v       Show version

Commands:
  wallet create --name <n>        Create a new wallet
  wallet import --name <n> --mnemonic "..."
                                  Import wallet from mnemonic
  wallet list                     List wallets

  account setup --wallet <w> --name <n> [--security <1-3>]
                                  Discover used addresses and store the account
  account sync --wallet <w> --name <n>
                                  Extend the address map past spent addresses
  account remainder --wallet <w> --name <n>
                                  Show a safe unused remainder address
  account inputs --wallet <w> --name <n> [--threshold <v>]
                                  Select spendable inputs (0 selects all)
  account receive --wallet <w> --name <n>
                                  Attach a fresh receive address to the ledger
  account trim --wallet <w> --name <n>
                                  Drop trailing unused addresses
  account blacklist --wallet <w> --name <n> --address <addr>
                                  Never use an address as remainder
  account show --wallet <w> --name <n>
                                  Show stored account state
  account list --wallet <w>       List accounts of a wallet
`)
}

// accounts opens the account database and manager on first use.
func (a *app) accounts() *account.Manager {
	if a.mgr != nil {
		return a.mgr
	}
	db, err := storage.NewBadger(a.cfg.AccountsDir())
	if err != nil {
		fatal("open account database: %v", err)
	}
	a.db = db

	policy, err := ledger.NewRoundRobin(a.cfg.Ledger.Nodes, a.cfg.Ledger.Retries)
	if err != nil {
		fatal("ledger nodes: %v", err)
	}
	client := ledger.New(policy, a.cfg.Ledger.Timeout)
	batch := a.cfg.Discovery.Batch

	a.mgr = account.NewManager(account.NewStore(db), func(security int) (*addresses.Engine, error) {
		d, err := wallet.NewDeriver(security)
		if err != nil {
			return nil, err
		}
		return addresses.NewEngine(client, d,
			addresses.WithSender(client),
			addresses.WithBatchSize(batch),
		), nil
	})
	return a.mgr
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Storage.Error().Err(err).Msg("Close account database")
		}
	}
}

// ── wallet ──────────────────────────────────────────────────────────────

func (a *app) cmdWallet(args []string) {
	if len(args) < 1 {
		fatal("Usage: addrsync-cli wallet <create|import|list> [flags]")
	}

	switch args[0] {
	case "create":
		a.cmdWalletCreate(args[1:])
	case "import":
		a.cmdWalletImport(args[1:])
	case "list":
		a.cmdWalletList()
	default:
		fatal("Unknown wallet command: %s\nUsage: addrsync-cli wallet <create|import|list> [flags]", args[0])
	}
}

func (a *app) cmdWalletCreate(args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: addrsync-cli wallet create --name <name>")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	a.storeSeed(*name, seed)
	fmt.Printf("\nWallet created: %s\n", *name)
}

func (a *app) cmdWalletImport(args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: addrsync-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	seed, err := wallet.SeedFromMnemonic(*mnemonic, "")
	if err != nil {
		fatal("import: %v", err)
	}

	a.storeSeed(*name, seed)
	fmt.Printf("Wallet imported: %s\n", *name)
	fmt.Printf("Run 'addrsync-cli account setup --wallet %s --name <account>' to discover addresses.\n", *name)
}

// storeSeed prompts for a new password and writes the encrypted seed.
// The seed is zeroed afterwards.
func (a *app) storeSeed(name string, seed []byte) {
	defer zero(seed)

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	if err := a.ks.Create(name, seed, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}
}

func (a *app) cmdWalletList() {
	names, err := a.ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		fp, err := a.ks.Fingerprint(name)
		if err != nil {
			fmt.Printf("%-20s (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Printf("%-20s %s\n", name, fp)
	}
}

// ── account ─────────────────────────────────────────────────────────────

func (a *app) cmdAccount(ctx context.Context, args []string) {
	const sub = "<setup|sync|remainder|inputs|receive|trim|blacklist|show|list>"
	if len(args) < 1 {
		fatal("Usage: addrsync-cli account %s [flags]", sub)
	}

	switch args[0] {
	case "setup":
		a.cmdAccountSetup(ctx, args[1:])
	case "sync":
		a.cmdAccountSync(ctx, args[1:])
	case "remainder":
		a.cmdAccountRemainder(ctx, args[1:])
	case "inputs":
		a.cmdAccountInputs(ctx, args[1:])
	case "receive":
		a.cmdAccountReceive(ctx, args[1:])
	case "trim":
		a.cmdAccountTrim(ctx, args[1:])
	case "blacklist":
		a.cmdAccountBlacklist(args[1:])
	case "show":
		a.cmdAccountShow(args[1:])
	case "list":
		a.cmdAccountList(args[1:])
	default:
		fatal("Unknown account command: %s\nUsage: addrsync-cli account %s [flags]", args[0], sub)
	}
}

// accountFlags registers the --wallet/--name pair shared by account commands.
func accountFlags(fs *flag.FlagSet) (w, n *string) {
	w = fs.String("wallet", "", "Wallet name")
	n = fs.String("name", "", "Account name")
	return w, n
}

func requireAccount(cmd, w, n string) {
	if w == "" || n == "" {
		fatal("Usage: addrsync-cli account %s --wallet <w> --name <n>", cmd)
	}
}

// unlock prompts for the wallet password and returns the decrypted seed.
func (a *app) unlock(walletName string) []byte {
	password, err := readPassword("Wallet password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := a.ks.Load(walletName, password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	return seed
}

func (a *app) cmdAccountSetup(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("account setup", flag.ExitOnError)
	w, n := accountFlags(fs)
	security := fs.Int("security", a.cfg.Wallet.Security, "Security level (1-3)")
	fs.Parse(args)
	requireAccount("setup", *w, *n)

	seed := a.unlock(*w)
	defer zero(seed)

	st, err := a.accounts().Setup(ctx, *w, *n, seed, *security)
	if err != nil {
		fatal("setup account: %v", err)
	}
	latest, err := addresses.LatestAddress(st.Addresses)
	if err != nil {
		fatal("latest address: %v", err)
	}
	if err := a.ks.AddAccount(*w, wallet.AccountEntry{
		Name:     *n,
		Security: *security,
		Address:  latest.String(),
	}); err != nil {
		fatal("add account: %v", err)
	}

	fmt.Printf("Account %s/%s set up\n", *w, *n)
	printState(st)
}

func (a *app) cmdAccountSync(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("account sync", flag.ExitOnError)
	w, n := accountFlags(fs)
	fs.Parse(args)
	requireAccount("sync", *w, *n)

	seed := a.unlock(*w)
	defer zero(seed)

	st, err := a.accounts().Sync(ctx, *w, *n, seed)
	if err != nil {
		fatal("sync account: %v", err)
	}
	printState(st)
}

func (a *app) cmdAccountRemainder(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("account remainder", flag.ExitOnError)
	w, n := accountFlags(fs)
	fs.Parse(args)
	requireAccount("remainder", *w, *n)

	seed := a.unlock(*w)
	defer zero(seed)

	addr, err := a.accounts().Remainder(ctx, *w, *n, seed)
	if err != nil {
		fatal("remainder: %v", err)
	}
	fmt.Println(addr.String())
}

func (a *app) cmdAccountInputs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("account inputs", flag.ExitOnError)
	w, n := accountFlags(fs)
	threshold := fs.Uint64("threshold", 0, "Value the inputs must cover (0 selects all)")
	fs.Parse(args)
	requireAccount("inputs", *w, *n)

	sel, err := a.accounts().Inputs(ctx, *w, *n, *threshold)
	if err != nil {
		if errors.Is(err, addresses.ErrInsufficientBalance) {
			fatal("balance too low to cover %d", *threshold)
		}
		fatal("select inputs: %v", err)
	}

	for _, in := range sel.Inputs {
		fmt.Printf("  %6d  %s  %d\n", in.KeyIndex, in.Address, in.Balance)
	}
	fmt.Printf("Total:     %d\n", sel.Total)
	fmt.Printf("Remainder: %d\n", sel.Remainder)
}

func (a *app) cmdAccountReceive(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("account receive", flag.ExitOnError)
	w, n := accountFlags(fs)
	fs.Parse(args)
	requireAccount("receive", *w, *n)

	seed := a.unlock(*w)
	defer zero(seed)

	// Proof of work is left to the node.
	addr, err := a.accounts().Receive(ctx, *w, *n, seed, nil)
	if err != nil {
		fatal("receive address: %v", err)
	}
	fmt.Println(addr.String())
}

func (a *app) cmdAccountTrim(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("account trim", flag.ExitOnError)
	w, n := accountFlags(fs)
	fs.Parse(args)
	requireAccount("trim", *w, *n)

	removed, err := a.accounts().Trim(ctx, *w, *n)
	if err != nil {
		fatal("trim account: %v", err)
	}
	fmt.Printf("Removed %d unused addresses\n", removed)
}

func (a *app) cmdAccountBlacklist(args []string) {
	fs := flag.NewFlagSet("account blacklist", flag.ExitOnError)
	w, n := accountFlags(fs)
	list := fs.String("address", "", "Addresses to blacklist (comma-separated)")
	fs.Parse(args)
	requireAccount("blacklist", *w, *n)
	if *list == "" {
		fatal("Usage: addrsync-cli account blacklist --wallet <w> --name <n> --address <addr>")
	}

	var addrs []types.Address
	for _, s := range strings.Split(*list, ",") {
		addr, err := types.ParseAddress(strings.TrimSpace(s))
		if err != nil {
			fatal("invalid address %q: %v", s, err)
		}
		addrs = append(addrs, addr)
	}
	if err := a.accounts().AddToBlacklist(*w, *n, addrs...); err != nil {
		fatal("blacklist: %v", err)
	}
	fmt.Printf("Blacklisted %d addresses\n", len(addrs))
}

func (a *app) cmdAccountShow(args []string) {
	fs := flag.NewFlagSet("account show", flag.ExitOnError)
	w, n := accountFlags(fs)
	fs.Parse(args)
	requireAccount("show", *w, *n)

	st, err := a.accounts().Show(*w, *n)
	if err != nil {
		fatal("show account: %v", err)
	}
	printState(st)
}

func (a *app) cmdAccountList(args []string) {
	fs := flag.NewFlagSet("account list", flag.ExitOnError)
	w := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)
	if *w == "" {
		fatal("Usage: addrsync-cli account list --wallet <w>")
	}

	names, err := a.accounts().List(*w)
	if err != nil {
		fatal("list accounts: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No accounts found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func printState(st *account.State) {
	fmt.Printf("Security:  %d\n", st.Security)
	fmt.Printf("Balance:   %d\n", st.Balance())
	fmt.Printf("Pending:   %d\n", len(addresses.PendingTransactions(st.Transactions)))
	fmt.Printf("Addresses: %d\n", len(st.Addresses))
	for _, addr := range st.Addresses.Sorted() {
		md := st.Addresses[addr]
		flags := ""
		if md.Spent.Local {
			flags += "L"
		}
		if md.Spent.Remote {
			flags += "R"
		}
		fmt.Printf("  %6d  %s%s  %-2s %d\n", md.Index, addr, md.Checksum, flags, md.Balance)
	}
}

// ── Helpers ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

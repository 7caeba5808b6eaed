// Package main 提供 msgbox 命令行入口
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dep2p/go-msgbox"
	"github.com/dep2p/go-msgbox/config"
	"github.com/dep2p/go-msgbox/pkg/lib/log"
	"github.com/dep2p/go-msgbox/pkg/types"
)

var logger = log.Logger("msgbox/cmd")

// errUsage 参数错误，已输出用法
var errUsage = errors.New("invalid usage")

// command 子命令
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"serve", "运行消息主机", runServe},
	{"id", "显示身份公钥", runID},
	{"send", "发送消息", runSend},
	{"list", "列出消息", runList},
	{"ack", "确认消息", runAck},
	{"anoint", "在主机上广告本身份", runAnoint},
	{"pay", "发送支付", runPay},
	{"version", "显示版本信息", runVersion},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" || args[0] == "--help" {
		printHelp()
		return nil
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, args[1:])
		}
	}
	printHelp()
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func printHelp() {
	fmt.Println("用法: msgbox <命令> [参数]")
	fmt.Println()
	fmt.Println("命令:")
	for _, c := range commands {
		fmt.Printf("  %-8s %s\n", c.name, c.summary)
	}
	fmt.Println()
	fmt.Println("使用 msgbox <命令> -h 查看命令参数")
	fmt.Printf("环境变量以 %s 为前缀覆盖配置文件，如 %sHOST\n", config.EnvPrefix, config.EnvPrefix)
}

// ============================================================================
//                              节点创建
// ============================================================================

// startNode 解析公共参数并启动节点
//
// 客户端命令未配置叠加网络时使用默认主机挂载的 /overlay。
func startNode(ctx context.Context, common *commonFlags, serve bool, extra ...msgbox.Option) (*msgbox.Node, error) {
	cfg, err := common.loadConfig(!serve)
	if err != nil {
		return nil, fmt.Errorf("配置错误: %w", err)
	}
	setupLogging(cfg)
	opts := append([]msgbox.Option{msgbox.WithConfig(cfg)}, extra...)
	return msgbox.Start(ctx, opts...)
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// ============================================================================
//                              子命令
// ============================================================================

func runServe(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	common.register(fs)
	listen := fs.String("listen", "", "监听地址（默认取配置）")
	store := fs.String("store", "", "存储引擎 (memory/badger)")
	dataDir := fs.String("data-dir", "", "数据目录")
	if err := parse(fs, args); err != nil {
		return err
	}

	opts := []msgbox.Option{msgbox.WithServer(*listen)}
	if *store != "" {
		opts = append(opts, msgbox.WithStorage(*store, *dataDir))
	}
	node, err := startNode(ctx, &common, true, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Close() }()

	srv, err := node.Server()
	if err != nil {
		return err
	}
	fmt.Printf("📦 %s\n", msgbox.VersionInfo())
	fmt.Printf("主机身份: %s\n", node.IdentityKey())
	fmt.Printf("监听地址: %s\n", srv.Addr())
	logger.Info("消息主机运行中", "addr", srv.Addr(), "store", node.Config().Storage.Engine)

	fmt.Println("按 Ctrl+C 退出")
	<-ctx.Done()
	fmt.Println("\n正在关闭主机...")
	return nil
}

func runID(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("id", flag.ContinueOnError)
	common.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	node, err := startNode(ctx, &common, false)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()
	fmt.Println(node.IdentityKey())
	return nil
}

func runSend(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	common.register(fs)
	to := fs.String("to", "", "接收方身份公钥")
	box := fs.String("box", "inbox", "消息盒")
	body := fs.String("body", "", "消息内容（JSON 对象或数组按结构化发送）")
	live := fs.Bool("live", false, "优先经全双工通道发送")
	plain := fs.Bool("plain", false, "不加密")
	target := fs.String("target", "", "覆盖目标主机")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *to == "" || *body == "" {
		fs.Usage()
		return errUsage
	}

	node, err := startNode(ctx, &common, false)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	msg := &types.OutboundMessage{
		Recipient:      *to,
		Box:            *box,
		Body:           types.ParseBody([]byte(*body)),
		SkipEncryption: *plain,
		Host:           *target,
	}
	send := node.Send
	if *live {
		send = node.SendLive
	}
	res, err := send(ctx, msg)
	if err != nil {
		return err
	}
	fmt.Println(res.MessageID)
	return nil
}

func runList(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	common.register(fs)
	box := fs.String("box", "inbox", "消息盒")
	ack := fs.Bool("ack", false, "列出后确认")
	if err := parse(fs, args); err != nil {
		return err
	}

	node, err := startNode(ctx, &common, false)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	msgs, err := node.List(ctx, *box)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			return err
		}
		ids = append(ids, m.ID)
	}
	if *ack && len(ids) > 0 {
		return node.Acknowledge(ctx, ids)
	}
	return nil
}

func runAck(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("ack", flag.ContinueOnError)
	common.register(fs)
	ids := fs.String("ids", "", "消息 ID（逗号分隔）")
	if err := parse(fs, args); err != nil {
		return err
	}
	list := splitAndTrim(*ids, ",")
	if len(list) == 0 {
		fs.Usage()
		return errUsage
	}

	node, err := startNode(ctx, &common, false)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()
	return node.Acknowledge(ctx, list)
}

func runAnoint(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("anoint", flag.ContinueOnError)
	common.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}

	node, err := startNode(ctx, &common, false)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	host := node.Config().Client.Host
	txid, err := node.Registry().Anoint(ctx, host)
	if err != nil {
		return err
	}
	fmt.Printf("已在 %s 广告，txid %s\n", host, txid)
	return nil
}

func runPay(ctx context.Context, args []string) error {
	var common commonFlags
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	common.register(fs)
	to := fs.String("to", "", "接收方身份公钥")
	amount := fs.Uint64("amount", 0, "金额（satoshi）")
	live := fs.Bool("live", false, "优先经全双工通道发送")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *to == "" || *amount == 0 {
		fs.Usage()
		return errUsage
	}

	node, err := startNode(ctx, &common, false)
	if err != nil {
		return err
	}
	defer func() { _ = node.Close() }()

	send := node.Payments().SendPayment
	if *live {
		send = node.Payments().SendLivePayment
	}
	res, err := send(ctx, *to, *amount)
	if err != nil {
		return err
	}
	fmt.Println(res.MessageID)
	return nil
}

func runVersion(_ context.Context, _ []string) error {
	fmt.Println(msgbox.VersionInfo())
	return nil
}

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

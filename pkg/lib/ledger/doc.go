// Package ledger 提供开发账本使用的交易编解码与脚本模板
//
// 交易格式（小端序，长度字段使用无符号 varint）：
//
//	version(4) | nIn | [prevTxid(32) prevIndex(4) len script sequence(4)]... |
//	nOut | [satoshis(8) len script]... | lockTime(4)
//
// txid 为 double-sha256 的逆序十六进制。这里的 beef 即上述原始交易字节。
//
// 脚本模板：
//   - PushDrop：<pubkey> OP_CHECKSIG <field>... OP_2DROP/OP_DROP
//   - P2PKH：OP_DUP OP_HASH160 <hash160> OP_EQUALVERIFY OP_CHECKSIG
package ledger

/*
Yondr keeps a game client's asset cache in step with the asset set of a server before play begins.
Assets (resources) live on disk under one root directory, one subdirectory per package. Every resource
has a normalized name, a type inferred from its extension and a 64 bit version computed from its bytes.

Processes

The server (components/server) loads every package of its resource directory at startup, freezes the
result and serves it read only to every connection. The client (components/client) owns a cache
directory laid out the same way, plus one _metadata.json per package recording the version of each
cached resource.

Handshake

On connect the server sends a welcome, then the manifest of all its resources as (package, id, version,
session id) tuples. The client registers what its cache already holds at the advertised version, asks
for the rest by session id, writes every received resource to its cache and records its version, then
sends Ready and Goodbye. Session ids are only valid for one connection.

Packages

engine/resource holds the store, engine/handshake both roles of the handshake, engine/proto the wire
messages and engine/netutil the framing and the TCP and KCP transports.

Configuration

Yondr uses `yondr.ini` as the default config file, see yondr.ini.sample.

*/
package yondr

// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

/*
Package crap implements the link layer of the REST Aggregation Protocol.

A link multiplexes up to 8191 logical channels over a single reliable,
ordered byte stream such as a TCP connection or a websocket. Every frame
starts with a four byte header holding a 16-bit size, three flag bits
(Head, Body and Flow) and a 13-bit channel ID. The highest ID, ControlID,
is reserved for link control frames such as ping and pong.

Each channel has a send window, eight frames by default. Sending a payload
frame consumes one unit of window, and the peer returns it by acknowledging
the frame with a Flow-only header. Frames written while the window is
exhausted are queued on the channel and sent in order as acknowledgements
arrive. Final frames close a message and need no window.

A Link is single-threaded and writes to an io.Writer sink. The inbound
byte stream is fed to Link.Recv in chunks of any size; complete frames are
reassembled and dispatched to the channel callbacks. Session runs a Link
over an io.ReadWriteCloser with locking and buffering, and Server, Client
and Gateway use Sessions to carry HTTP requests and responses.
*/
package crap

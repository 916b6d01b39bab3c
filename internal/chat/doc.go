// Package chat translates transport connect, disconnect and send events into
// session registry mutations and outbound notifications.
//
// The Coordinator owns presence: manager online/offline broadcasts and the
// reveal of waiting sessions to a newly connected manager. The Router owns
// message delivery between a customer and the manager. Both sit on top of a
// Transport, which the websocket gateway implements.
package chat

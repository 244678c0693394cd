// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht provides a driver for the AOSONG DHT11, DHT22 and AM2302
// temperature/humidity sensors.
//
// The sensors use a proprietary single wire protocol. The host pulls the
// line low to request a reading, then the sensor answers with 41 pulses: an
// 80µs low/80µs high response followed by 40 data bits, each a ~50µs low
// period and a high period of ~28µs (0) or ~70µs (1). The 5 data bytes are
// humidity, temperature and an additive checksum.
//
// The driver bit-bangs a regular GPIO pin. The timing is tight for a
// non-realtime kernel, so an occasional ErrTimeout or ErrChecksum is
// expected; callers decide whether to read again.
//
// # Datasheet
//
// https://cdn-shop.adafruit.com/datasheets/Digital+humidity+and+temperature+sensor+AM2302.pdf
//
// https://www.mouser.com/datasheet/2/758/DHT11-Technical-Data-Sheet-Translated-Version-1143054.pdf
package dht

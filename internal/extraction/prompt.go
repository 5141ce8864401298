// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extraction

const systemPrompt = "You analyse emails for private jet charter requests and reply with JSON only."

const userPromptTemplate = `Decide whether the email below asks to charter a private aircraft.

Reply with a single JSON object of this shape:
{
  "is_charter_request": boolean,
  "user_info": {"name": string|null, "email": string|null, "phone": string|null, "state": string|null},
  "flights": [
    {
      "origin": airport code,
      "destination": airport code,
      "travel_date": "YYYY-MM-DDTHH:MM:SS",
      "passengers": number|null,
      "aircraft_size": one of "piston", "turboprop", "very_light", "light", "midsize", "super_midsize", "heavy", "ultra_long_range", "vip_airliner", "unknown"
    }
  ]
}

List flights in travel order; a round trip is two legs. Use ICAO or IATA codes
for airports. If the email is not a charter request reply {"is_charter_request": false, "flights": []}.

Email:
%s`
